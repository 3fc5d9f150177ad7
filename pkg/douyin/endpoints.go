package douyin

import "net/url"

// BaseURL is the platform's web API origin.
const BaseURL = "https://www.douyin.com"

// FixedUserAgent is the browser identity presented on every request.
// It must match what the signing gateway assumes.
const FixedUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/135.0.0.0 Safari/537.36"

// API endpoint paths. HomefeedURI is the one endpoint that is never
// signed.
const (
	SearchURI         = "/aweme/v1/web/general/search/single/"
	AwemeDetailURI    = "/aweme/v1/web/aweme/detail/"
	CommentListURI    = "/aweme/v1/web/comment/list/"
	SubCommentListURI = "/aweme/v1/web/comment/list/reply/"
	UserProfileURI    = "/aweme/v1/web/user/profile/other/"
	UserPostsURI      = "/aweme/v1/web/aweme/post/"
	HomefeedURI       = "/aweme/v1/web/module/feed/"
	HistoryReadURI    = "/aweme/v1/web/history/read/"
)

// SearchChannel selects what kind of results a search returns.
type SearchChannel string

const (
	ChannelGeneral SearchChannel = "aweme_general"
	ChannelVideo   SearchChannel = "aweme_video_web"
	ChannelUser    SearchChannel = "aweme_user_web"
	ChannelLive    SearchChannel = "aweme_live"
)

// SearchSort orders search results.
type SearchSort int

const (
	SortGeneral   SearchSort = 0
	SortMostLiked SearchSort = 1
	SortLatest    SearchSort = 2
)

// PublishTime filters search results by age, in days. Zero means no
// filter.
type PublishTime int

const (
	PublishUnlimited PublishTime = 0
	PublishOneDay    PublishTime = 1
	PublishOneWeek   PublishTime = 7
	PublishSixMonths PublishTime = 180
)

// FeedTag selects a homefeed category.
type FeedTag int

const (
	FeedTagAll       FeedTag = 0
	FeedTagKnowledge FeedTag = 300213
	FeedTagSports    FeedTag = 300207
	FeedTagAuto      FeedTag = 300218
	FeedTagGame      FeedTag = 300205
	FeedTagMovie     FeedTag = 300215
	FeedTagTravel    FeedTag = 300221
	FeedTagFood      FeedTag = 300204
	FeedTagMusic     FeedTag = 300209
)

// ParseSearchSort maps a config string to a sort value.
func ParseSearchSort(s string) SearchSort {
	switch s {
	case "most_liked":
		return SortMostLiked
	case "latest":
		return SortLatest
	default:
		return SortGeneral
	}
}

// ParsePublishTime maps a config string to a publish-time filter.
func ParsePublishTime(s string) PublishTime {
	switch s {
	case "one_day":
		return PublishOneDay
	case "one_week":
		return PublishOneWeek
	case "six_months":
		return PublishSixMonths
	default:
		return PublishUnlimited
	}
}

// ParseFeedTag maps a config string to a feed category.
func ParseFeedTag(s string) FeedTag {
	switch s {
	case "knowledge":
		return FeedTagKnowledge
	case "sports":
		return FeedTagSports
	case "auto":
		return FeedTagAuto
	case "game":
		return FeedTagGame
	case "movie":
		return FeedTagMovie
	case "travel":
		return FeedTagTravel
	case "food":
		return FeedTagFood
	case "music":
		return FeedTagMusic
	default:
		return FeedTagAll
	}
}

// commonParams are the fixed browser-environment parameters the API
// expects on every signed call.
func commonParams() url.Values {
	return url.Values{
		"device_platform":             {"webapp"},
		"aid":                         {"6383"},
		"channel":                     {"channel_pc_web"},
		"publish_video_strategy_type": {"2"},
		"update_version_code":         {"170400"},
		"pc_client_type":              {"1"},
		"version_code":                {"170400"},
		"version_name":                {"17.4.0"},
		"cookie_enabled":              {"true"},
		"screen_width":                {"2560"},
		"screen_height":               {"1440"},
		"browser_language":            {"zh-CN"},
		"browser_platform":            {"MacIntel"},
		"browser_name":                {"Chrome"},
		"browser_version":             {"135.0.0.0"},
		"browser_online":              {"true"},
		"engine_name":                 {"Blink"},
		"engine_version":              {"135.0.0.0"},
		"os_name":                     {"Mac+OS"},
		"os_version":                  {"10.15.7"},
		"cpu_core_num":                {"8"},
		"device_memory":               {"8"},
		"platform":                    {"PC"},
		"downlink":                    {"4.45"},
		"effective_type":              {"4g"},
		"round_trip_time":             {"100"},
	}
}

// homefeedParams are the fixed parameters of the unsigned feed call.
func homefeedParams() url.Values {
	return url.Values{
		"device_platform":     {"webapp"},
		"aid":                 {"6383"},
		"channel":             {"channel_pc_web"},
		"module_id":           {"3003101"},
		"filterGids":          {""},
		"presented_ids":       {""},
		"refer_id":            {""},
		"refer_type":          {"10"},
		"awemePcRecRawData":   {`{"is_xigua_user":0,"is_client":false}`},
		"Seo-Flag":            {"0"},
		"install_time":        {"1749390216"},
		"use_lite_type":       {"0"},
		"xigua_user":          {"0"},
		"pc_client_type":      {"1"},
		"pc_libra_divert":     {"Mac"},
		"update_version_code": {"170400"},
		"support_h265":        {"1"},
		"support_dash":        {"1"},
		"version_code":        {"170400"},
		"version_name":        {"17.4.0"},
		"cookie_enabled":      {"true"},
		"screen_width":        {"2560"},
		"screen_height":       {"1440"},
		"browser_language":    {"en"},
		"browser_platform":    {"MacIntel"},
		"browser_name":        {"Chrome"},
		"browser_version":     {"135.0.0.0"},
		"browser_online":      {"true"},
		"engine_name":         {"Blink"},
		"engine_version":      {"135.0.0.0"},
		"os_name":             {"Mac OS"},
		"os_version":          {"10.15.7"},
		"cpu_core_num":        {"10"},
		"device_memory":       {"8"},
		"platform":            {"PC"},
		"downlink":            {"10"},
		"effective_type":      {"4g"},
		"round_trip_time":     {"100"},
	}
}
