package douyin

import "strings"

// extractVideoDownloadURL picks the best available play address. The
// last entry of a url list is the freshest; lists shorter than two
// entries are placeholder data.
func extractVideoDownloadURL(v rawVideo) string {
	candidates := v.PlayAddrH264.URLList
	if len(candidates) == 0 {
		candidates = v.PlayAddr256.URLList
	}
	if len(candidates) == 0 {
		candidates = v.PlayAddr.URLList
	}
	if len(candidates) < 2 {
		return ""
	}
	return candidates[len(candidates)-1]
}

// extractCoverURL picks the high resolution cover, second entry of the
// raw or original cover list.
func extractCoverURL(v rawVideo) string {
	list := v.RawCover.URLList
	if len(list) == 0 {
		list = v.OriginCover.URLList
	}
	if len(list) > 1 {
		return list[1]
	}
	return ""
}

func firstURL(l urlList) string {
	if len(l.URLList) > 0 {
		return l.URLList[0]
	}
	return ""
}

// extractAweme flattens a raw content item into a storage record.
func extractAweme(raw *rawAweme) *Aweme {
	if raw == nil || raw.AwemeID == "" {
		return nil
	}

	title := raw.PreviewTitle
	if title == "" {
		title = raw.Desc
	}

	return &Aweme{
		AwemeID:          raw.AwemeID,
		AwemeType:        raw.AwemeType,
		Title:            title,
		Desc:             raw.Desc,
		CreateTime:       raw.CreateTime,
		LikedCount:       raw.Statistics.DiggCount,
		CommentCount:     raw.Statistics.CommentCount,
		ShareCount:       raw.Statistics.ShareCount,
		CollectedCount:   raw.Statistics.CollectCount,
		AwemeURL:         BaseURL + "/video/" + raw.AwemeID,
		CoverURL:         extractCoverURL(raw.Video),
		VideoDownloadURL: extractVideoDownloadURL(raw.Video),
		IsAIGenerated:    raw.AigcInfo.AigcLabelType,
		UserID:           raw.Author.UID,
		SecUID:           raw.Author.SecUID,
		ShortUserID:      raw.Author.ShortID,
		UserUniqueID:     raw.Author.UniqueID,
		Nickname:         raw.Author.Nickname,
		Avatar:           firstURL(raw.Author.AvatarThumb),
		UserSignature:    raw.Author.Signature,
		IPLocation:       raw.IPLabel,
	}
}

// extractComments flattens one page of raw comments, stamping each
// with the content id it belongs to.
func extractComments(awemeID string, raws []*rawComment) []*Comment {
	if len(raws) == 0 {
		return nil
	}
	comments := make([]*Comment, 0, len(raws))
	for _, raw := range raws {
		comments = append(comments, &Comment{
			CommentID:       raw.CID,
			AwemeID:         awemeID,
			Content:         raw.Text,
			CreateTime:      raw.CreateTime,
			SubCommentCount: raw.ReplyCommentTotal,
			ParentCommentID: raw.ReplyID,
			ReplyToReplyID:  raw.ReplyToReplyID,
			LikeCount:       raw.DiggCount,
			Pictures:        strings.Join(extractCommentImages(raw), ","),
			IPLocation:      raw.IPLabel,
			UserID:          raw.User.UID,
			SecUID:          raw.User.SecUID,
			Nickname:        raw.User.Nickname,
			Avatar:          firstURL(raw.User.AvatarThumb),
			UserSignature:   raw.User.Signature,
		})
	}
	return comments
}

func extractCommentImages(raw *rawComment) []string {
	var urls []string
	for _, image := range raw.ImageList {
		if len(image.OriginURL.URLList) > 1 {
			urls = append(urls, image.OriginURL.URLList[1])
		}
	}
	return urls
}

// extractCreator flattens a raw user profile into a storage record.
func extractCreator(raw *rawUser) *Creator {
	if raw == nil {
		return nil
	}

	gender := "unknown"
	switch raw.Gender {
	case 1:
		gender = "male"
	case 2:
		gender = "female"
	}

	return &Creator{
		UserID:      raw.UID,
		SecUID:      raw.SecUID,
		Nickname:    raw.Nickname,
		Avatar:      firstURL(raw.AvatarLarger),
		IPLocation:  raw.IPLocation,
		Desc:        raw.Signature,
		Gender:      gender,
		Follows:     raw.Statistics.FollowingCount,
		Fans:        raw.Statistics.FollowerCount,
		Interaction: raw.Statistics.TotalFavorited,
		VideosCount: raw.Statistics.AwemeCount,
	}
}
