package resolver

import (
	"fmt"
	"net/url"
	"strings"

	"SyncBeat/model"

	"github.com/google/uuid"
)

const (
	DefaultTitle     = "Unknown Track"
	DefaultThumbnail = "https://picsum.photos/200"

	spotifyThumbnail = "https://upload.wikimedia.org/wikipedia/commons/1/19/Spotify_logo_without_text.svg"
)

// TrackDescriptor URL 解析结果（展示用元数据）
type TrackDescriptor struct {
	Platform        model.Platform
	Title           string
	ThumbnailRef    string
	DurationSeconds *float64
}

// DetectPlatform 按域名粗分平台
func DetectPlatform(rawURL string) model.Platform {
	switch {
	case strings.Contains(rawURL, "youtube.com"), strings.Contains(rawURL, "youtu.be"):
		return model.PlatformPrimaryVideo
	case strings.Contains(rawURL, "spotify.com"):
		return model.PlatformOtherStreamingA
	case strings.Contains(rawURL, "soundcloud.com"):
		return model.PlatformOtherStreamingB
	default:
		return model.PlatformGeneric
	}
}

// Resolve 纯函数，不访问网络，也从不返回错误；无法解析时给出通用描述
func Resolve(rawURL string) TrackDescriptor {
	zero := 0.0
	d := TrackDescriptor{
		Platform:        DetectPlatform(rawURL),
		Title:           DefaultTitle,
		ThumbnailRef:    DefaultThumbnail,
		DurationSeconds: &zero,
	}

	switch d.Platform {
	case model.PlatformPrimaryVideo:
		d.Title = fmt.Sprintf("YouTube Video (%s)", lastN(rawURL, 11))
		if id := VideoID(rawURL); id != "" {
			d.Title = "YouTube Track " + id
			d.ThumbnailRef = fmt.Sprintf("https://img.youtube.com/vi/%s/0.jpg", id)
		}
	case model.PlatformOtherStreamingA:
		d.Title = "Spotify Track"
		d.ThumbnailRef = spotifyThumbnail
	default:
		d.Title = "External Link"
	}
	return d
}

// VideoID 取 ?v= 参数，youtu.be 短链取最后一段路径
func VideoID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	if strings.Contains(rawURL, "youtu.be") {
		segs := strings.Split(strings.TrimRight(u.Path, "/"), "/")
		return segs[len(segs)-1]
	}
	return ""
}

// NewTrack 生成一条新曲目，ID 在本地生成
func NewTrack(rawURL, addedBy string) model.Track {
	d := Resolve(rawURL)
	return model.Track{
		ID:              uuid.NewString(),
		SourceURL:       rawURL,
		Platform:        d.Platform,
		Title:           d.Title,
		ThumbnailRef:    d.ThumbnailRef,
		AddedBy:         addedBy,
		DurationSeconds: d.DurationSeconds,
	}
}

// lastN 按字符截取，保证结果是合法 UTF-8
func lastN(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
