package storage

import (
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// cloudflareURL rewrites a public object URL into a Cloudflare image
// resizing URL on the same zone:
//
//	https://img.example.com/seeds/1-abc.png
//	https://img.example.com/cdn-cgi/image/width=800,format=auto/seeds/1-abc.png
//
// Anything it doesn't understand is returned unchanged.
func cloudflareURL(ref, publicURL string, o TransformOpts) string {
	if ref == "" {
		return ""
	}

	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		zap.L().Debug("Can't optimize image reference", zap.String("ref", ref), zap.Error(err))
		return ref
	}

	base, err := url.Parse(publicURL)
	if err != nil || !strings.EqualFold(base.Host, u.Host) {
		return ref
	}

	if strings.HasPrefix(u.Path, "/cdn-cgi/image/") {
		return ref
	}

	object := strings.TrimPrefix(u.Path, "/")
	if object == "" {
		return ref
	}

	o = o.withDefaults()

	opts := []string{"width=" + strconv.Itoa(o.Width)}
	if o.Quality > 0 {
		opts = append(opts, "quality="+strconv.Itoa(o.Quality))
	}
	opts = append(opts, "format="+url.PathEscape(o.Format))

	return u.Scheme + "://" + u.Host + "/cdn-cgi/image/" + strings.Join(opts, ",") + "/" + object
}
