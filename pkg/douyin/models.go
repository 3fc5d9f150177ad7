package douyin

import (
	"encoding/json"

	"dycrawler/pkg/logger"
)

// envelope is the application-level status carried by most responses.
type envelope struct {
	StatusCode int    `json:"status_code"`
	StatusMsg  string `json:"status_msg"`
}

// urlList is the platform's repeated {url_list: [...]} shape.
type urlList struct {
	URLList []string `json:"url_list"`
}

type rawStatistics struct {
	DiggCount    int64 `json:"digg_count"`
	CommentCount int64 `json:"comment_count"`
	ShareCount   int64 `json:"share_count"`
	CollectCount int64 `json:"collect_count"`
}

type rawAuthor struct {
	UID         string  `json:"uid"`
	SecUID      string  `json:"sec_uid"`
	ShortID     string  `json:"short_id"`
	UniqueID    string  `json:"unique_id"`
	Nickname    string  `json:"nickname"`
	Signature   string  `json:"signature"`
	AvatarThumb urlList `json:"avatar_thumb"`
}

type rawVideo struct {
	PlayAddrH264 urlList `json:"play_addr_h264"`
	PlayAddr256  urlList `json:"play_addr_256"`
	PlayAddr     urlList `json:"play_addr"`
	RawCover     urlList `json:"raw_cover"`
	OriginCover  urlList `json:"origin_cover"`
}

type rawAweme struct {
	AwemeID      string        `json:"aweme_id"`
	AwemeType    int           `json:"aweme_type"`
	Desc         string        `json:"desc"`
	PreviewTitle string        `json:"preview_title"`
	CreateTime   int64         `json:"create_time"`
	IPLabel      string        `json:"ip_label"`
	Statistics   rawStatistics `json:"statistics"`
	Author       rawAuthor     `json:"author"`
	Video        rawVideo      `json:"video"`
	AigcInfo     struct {
		AigcLabelType int `json:"aigc_label_type"`
	} `json:"aigc_info"`
}

type rawComment struct {
	CID               string     `json:"cid"`
	Text              string     `json:"text"`
	CreateTime        int64      `json:"create_time"`
	ReplyCommentTotal int64      `json:"reply_comment_total"`
	ReplyID           string     `json:"reply_id"`
	ReplyToReplyID    string     `json:"reply_to_reply_id"`
	DiggCount         int64      `json:"digg_count"`
	IPLabel           string     `json:"ip_label"`
	User              rawAuthor  `json:"user"`
	ImageList         []rawImage `json:"image_list"`
}

type rawImage struct {
	OriginURL urlList `json:"origin_url"`
}

type rawUser struct {
	UID          string  `json:"uid"`
	SecUID       string  `json:"sec_uid"`
	Nickname     string  `json:"nickname"`
	Signature    string  `json:"signature"`
	Gender       int     `json:"gender"`
	IPLocation   string  `json:"ip_location"`
	AvatarLarger urlList `json:"avatar_larger"`
	Statistics   struct {
		FollowingCount int64 `json:"following_count"`
		FollowerCount  int64 `json:"follower_count"`
		TotalFavorited int64 `json:"total_favorited"`
		AwemeCount     int64 `json:"aweme_count"`
	} `json:"statistics"`
}

// searchResponse is one page of keyword search results. The search
// session id for the next page travels in extra.logid.
type searchResponse struct {
	envelope
	Data  []searchItem `json:"data"`
	Extra struct {
		Logid string `json:"logid"`
	} `json:"extra"`
}

type searchItem struct {
	AwemeInfo    *rawAweme `json:"aweme_info"`
	AwemeMixInfo *struct {
		MixItems []*rawAweme `json:"mix_items"`
	} `json:"aweme_mix_info"`
}

// awemes flattens the page's content items. Mixed-collection entries
// contribute their first item.
func (r *searchResponse) awemes() []*Aweme {
	var awemes []*Aweme
	for _, item := range r.Data {
		raw := item.AwemeInfo
		if raw == nil && item.AwemeMixInfo != nil && len(item.AwemeMixInfo.MixItems) > 0 {
			raw = item.AwemeMixInfo.MixItems[0]
		}
		if aweme := extractAweme(raw); aweme != nil {
			awemes = append(awemes, aweme)
		}
	}
	return awemes
}

type detailResponse struct {
	envelope
	AwemeDetail *rawAweme `json:"aweme_detail"`
}

// CommentsResponse is one page of a comment thread.
type CommentsResponse struct {
	envelope
	Comments []*rawComment `json:"comments"`
	Cursor   int64         `json:"cursor"`
	HasMore  int           `json:"has_more"`
}

type userResponse struct {
	envelope
	User *rawUser `json:"user"`
}

// userPostsResponse is one page of a creator's timeline.
type userPostsResponse struct {
	envelope
	AwemeList []*rawAweme `json:"aweme_list"`
	MaxCursor int64       `json:"max_cursor"`
	HasMore   int         `json:"has_more"`
}

func (r *userPostsResponse) awemes() []*Aweme {
	var awemes []*Aweme
	for _, raw := range r.AwemeList {
		if aweme := extractAweme(raw); aweme != nil {
			awemes = append(awemes, aweme)
		}
	}
	return awemes
}

// feedResponse is one homefeed page. The feed endpoint uses its own
// envelope casing and wraps each item as a JSON string inside a card.
type feedResponse struct {
	StatusCode int        `json:"StatusCode"`
	Cards      []feedCard `json:"cards"`
}

type feedCard struct {
	Type  int    `json:"type"`
	Aweme string `json:"aweme"`
}

// awemes decodes the feed's embedded content items. Only video cards
// carry an item; entries that fail to decode are skipped.
func (r *feedResponse) awemes(log logger.Logger) []*Aweme {
	var awemes []*Aweme
	for _, card := range r.Cards {
		if card.Type != 1 || card.Aweme == "" {
			continue
		}
		var raw rawAweme
		if err := json.Unmarshal([]byte(card.Aweme), &raw); err != nil {
			if log != nil {
				log.WarnWithFields("failed to decode feed card", map[string]interface{}{
					"error": err.Error(),
				})
			}
			continue
		}
		if aweme := extractAweme(&raw); aweme != nil {
			awemes = append(awemes, aweme)
		}
	}
	return awemes
}

type historyReadResponse struct {
	envelope
}

// Aweme is the flattened content record handed to storage.
type Aweme struct {
	AwemeID          string `json:"aweme_id"`
	AwemeType        int    `json:"aweme_type"`
	Title            string `json:"title"`
	Desc             string `json:"desc"`
	CreateTime       int64  `json:"create_time"`
	LikedCount       int64  `json:"liked_count"`
	CommentCount     int64  `json:"comment_count"`
	ShareCount       int64  `json:"share_count"`
	CollectedCount   int64  `json:"collected_count"`
	AwemeURL         string `json:"aweme_url"`
	CoverURL         string `json:"cover_url"`
	VideoDownloadURL string `json:"video_download_url"`
	SourceKeyword    string `json:"source_keyword"`
	IsAIGenerated    int    `json:"is_ai_generated"`
	UserID           string `json:"user_id"`
	SecUID           string `json:"sec_uid"`
	ShortUserID      string `json:"short_user_id"`
	UserUniqueID     string `json:"user_unique_id"`
	Nickname         string `json:"nickname"`
	Avatar           string `json:"avatar"`
	UserSignature    string `json:"user_signature"`
	IPLocation       string `json:"ip_location"`
}

// Comment is the flattened comment record handed to storage.
type Comment struct {
	CommentID       string `json:"comment_id"`
	AwemeID         string `json:"aweme_id"`
	Content         string `json:"content"`
	CreateTime      int64  `json:"create_time"`
	SubCommentCount int64  `json:"sub_comment_count"`
	ParentCommentID string `json:"parent_comment_id"`
	ReplyToReplyID  string `json:"reply_to_reply_id"`
	LikeCount       int64  `json:"like_count"`
	Pictures        string `json:"pictures"`
	IPLocation      string `json:"ip_location"`
	UserID          string `json:"user_id"`
	SecUID          string `json:"sec_uid"`
	Nickname        string `json:"nickname"`
	Avatar          string `json:"avatar"`
	UserSignature   string `json:"user_signature"`
}

// Creator is the flattened creator-profile record handed to storage.
type Creator struct {
	UserID      string `json:"user_id"`
	SecUID      string `json:"sec_uid"`
	Nickname    string `json:"nickname"`
	Avatar      string `json:"avatar"`
	IPLocation  string `json:"ip_location"`
	Desc        string `json:"desc"`
	Gender      string `json:"gender"`
	Follows     int64  `json:"follows"`
	Fans        int64  `json:"fans"`
	Interaction int64  `json:"interaction"`
	VideosCount int64  `json:"videos_count"`
}
