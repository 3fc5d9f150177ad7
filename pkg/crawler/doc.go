// Package crawler orchestrates the four crawl modes: keyword search,
// direct detail fetch, creator timelines and the recommendation feed.
//
// A Crawler owns one request client, one output sink and optionally a
// checkpoint store. Page loops run sequentially per mode; items and
// comment threads within a page fan out through bounded worker gates.
// Every progress mutation is persisted through the checkpoint store,
// so an interrupted run resumes without re-fetching finished items.
package crawler
