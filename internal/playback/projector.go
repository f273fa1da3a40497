// Package playback turns packager egress URLs into public ad-stitched
// playback URLs.
package playback

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"fastchannels/internal/resources"
)

// URL is one playable endpoint published downstream.
type URL struct {
	AssetID                  string  `json:"assetId" yaml:"assetId"`
	PackagingConfigurationID string  `json:"packagingConfigurationId" yaml:"packagingConfigurationId"`
	VodPlaybackURL           string  `json:"vodPlaybackUrl" yaml:"vodPlaybackUrl"`
	AdOffsets                *string `json:"adOffsets" yaml:"adOffsets"`
}

// Projector rewrites egress URLs onto the ad stitcher's playback prefixes.
// A nil target leaves that format unrewritten.
type Projector struct {
	HLS  *url.URL
	DASH *url.URL
}

// NewProjector parses the optional HLS and DASH rewrite bases.
func NewProjector(hlsBase, dashBase string) (*Projector, error) {
	p := &Projector{}
	var err error
	if p.HLS, err = parseBase(hlsBase); err != nil {
		return nil, fmt.Errorf("hls rewrite base: %w", err)
	}
	if p.DASH, err = parseBase(dashBase); err != nil {
		return nil, fmt.Errorf("dash rewrite base: %w", err)
	}
	return p, nil
}

func parseBase(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	return url.Parse(raw)
}

// Rewrite projects one egress URL. Unknown extensions and unconfigured
// formats pass through unchanged.
func (p *Projector) Rewrite(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse egress url %q: %w", raw, err)
	}
	var target *url.URL
	switch path.Ext(parsed.Path) {
	case ".m3u8":
		target = p.HLS
	case ".mpd":
		target = p.DASH
	}
	if target == nil {
		return raw, nil
	}
	rewritten := *parsed
	rewritten.Host = target.Host
	rewritten.Path = strings.TrimRight(target.Path, "/") + parsed.Path
	rewritten.RawPath = ""
	return rewritten.String(), nil
}

// Project builds one playback record per egress endpoint of an asset.
func (p *Projector) Project(assetID string, endpoints []resources.EgressEndpoint, adOffsets string) ([]URL, error) {
	var offsets *string
	if adOffsets != "" {
		offsets = &adOffsets
	}
	urls := make([]URL, 0, len(endpoints))
	for _, endpoint := range endpoints {
		rewritten, err := p.Rewrite(endpoint.URL)
		if err != nil {
			return nil, err
		}
		urls = append(urls, URL{
			AssetID:                  assetID,
			PackagingConfigurationID: endpoint.ConfigurationID,
			VodPlaybackURL:           rewritten,
			AdOffsets:                offsets,
		})
	}
	return urls, nil
}
