package sanity

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

// ImageURL converts an image asset reference of the form
// image-<hash>-<width>x<height>-<format> into its CDN URL.
func (c *Client) ImageURL(ref string) (string, error) {
	return ImageURL(c.cfg.ProjectID, c.cfg.Dataset, ref)
}

// ImageURL converts an image asset reference for the given project and
// dataset into its CDN URL.
func ImageURL(projectID, dataset, ref string) (string, error) {
	rest, ok := strings.CutPrefix(ref, "image-")
	if !ok {
		return "", errors.Errorf("invalid image reference %q", ref)
	}
	i := strings.LastIndexByte(rest, '-')
	if i <= 0 || i == len(rest)-1 {
		return "", errors.Errorf("invalid image reference %q", ref)
	}
	idAndSize, format := rest[:i], rest[i+1:]

	j := strings.LastIndexByte(idAndSize, '-')
	if j <= 0 {
		return "", errors.Errorf("invalid image reference %q", ref)
	}
	var w, h int
	if _, err := fmt.Sscanf(idAndSize[j+1:], "%dx%d", &w, &h); err != nil || w <= 0 || h <= 0 {
		return "", errors.Errorf("invalid image dimensions in %q", ref)
	}

	return fmt.Sprintf("https://cdn.sanity.io/images/%s/%s/%s.%s", projectID, dataset, idAndSize, format), nil
}
