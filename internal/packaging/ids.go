package packaging

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"fastchannels/internal/services"
)

// DeriveResourceID turns a transcoder output locator into a packager asset
// ID. The extension is dropped along with every character outside
// [A-Za-z0-9-], including path separators, so directory names stay part of
// the ID.
func DeriveResourceID(output string) (string, error) {
	parsed, err := url.Parse(output)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "packaging", "derive id", output, err)
	}
	p := strings.TrimPrefix(parsed.Path, "/")
	p = strings.TrimSuffix(p, path.Ext(p))
	var b strings.Builder
	b.Grow(len(p))
	for _, r := range p {
		if r == '-' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "", services.Wrap(services.ErrValidation, "packaging", "derive id",
			fmt.Sprintf("%q yields an empty asset id", output), nil)
	}
	return b.String(), nil
}

// SourceARN converts an s3:// or bucket-hosted locator into the object ARN
// the packager ingests from.
func SourceARN(output string) (string, error) {
	parsed, err := url.Parse(output)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "packaging", "source arn", output, err)
	}
	if parsed.Host == "" || parsed.Path == "" {
		return "", services.Wrap(services.ErrValidation, "packaging", "source arn",
			fmt.Sprintf("%q has no bucket or key", output), nil)
	}
	return "arn:aws:s3:::" + parsed.Host + parsed.Path, nil
}
