package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/notegen/internal/resolver"
)

var sidecarExts = []string{".srt", ".vtt", ".SRT", ".VTT"}

// Video extracts the transcript of a video from a subtitle file with the
// same stem. A video without subtitles yields empty text.
type Video struct{}

func NewVideo() *Video { return &Video{} }

func (*Video) Extract(ctx context.Context, path string) (*Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := &Content{FileType: TypeVideo}

	sidecar := FindSidecar(path)
	if sidecar == "" {
		return c, nil
	}
	data, err := readFile(ctx, sidecar)
	if err != nil {
		return nil, err
	}
	raw := string(data)
	tr, err := resolver.ParseTranscript(raw, resolver.DetectFormat(sidecar, raw))
	if err != nil {
		return nil, err
	}
	c.Text = tr.Text()
	c.Source = raw
	c.SidecarPath = sidecar
	return c, nil
}

// FindSidecar returns the subtitle file next to a video, or "".
func FindSidecar(videoPath string) string {
	stem := strings.TrimSuffix(videoPath, filepath.Ext(videoPath))
	for _, ext := range sidecarExts {
		p := stem + ext
		if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
			return p
		}
	}
	return ""
}
