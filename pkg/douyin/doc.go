// Package douyin implements the platform API client: typed operations
// for keyword search, content detail, comment threads, creator
// profiles and the homefeed, issued through one bound credential and
// proxy pairing.
//
// Every response is classified into an error kind, and each kind has a
// fixed recovery: transport errors retry in place, identity rejections
// rotate the binding and retry once, throttles sleep and retry without
// rotating. All endpoints except the homefeed require a token from the
// signing gateway.
package douyin
