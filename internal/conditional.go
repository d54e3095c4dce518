package internal

import (
	"net/http"
	"strings"
	"time"
)

// Versioned applies conditional request handling for a resource at the given
// version. It sets ETag and Last-Modified (zero values are skipped), then:
//   - returns ErrPreconditionFailed when If-Match or If-Unmodified-Since does not hold,
//     or when If-None-Match matches on an unsafe method;
//   - sends 304 Not Modified and returns true when a GET/HEAD client copy is fresh.
//
// Example:
//
//	if sent, err := res.Versioned(req, doc.Hash, doc.UpdatedAt); sent || err != nil {
//	    return err
//	}
//	return res.JSON(http.StatusOK, doc)
func (r *Response) Versioned(req *Request, etag string, modified time.Time) (bool, error) {
	if etag != "" {
		etag = quoteETag(etag)
		r.w.Header().Set("ETag", etag)
	}
	if !modified.IsZero() {
		modified = modified.UTC().Truncate(time.Second)
		r.w.Header().Set("Last-Modified", modified.Format(http.TimeFormat))
	}

	h := req.HTTP().Header
	safe := req.Method() == http.MethodGet || req.Method() == http.MethodHead

	if im := h.Get("If-Match"); im != "" {
		if etag == "" || !etagListMatch(im, etag, true) {
			return false, ErrPreconditionFailed("resource version mismatch")
		}
	} else if ius := h.Get("If-Unmodified-Since"); ius != "" && !modified.IsZero() {
		if t, err := http.ParseTime(ius); err == nil && modified.After(t) {
			return false, ErrPreconditionFailed("resource modified")
		}
	}

	if inm := h.Get("If-None-Match"); inm != "" {
		if etag == "" || !etagListMatch(inm, etag, false) {
			return false, nil
		}
		if !safe {
			return false, ErrPreconditionFailed("resource already exists")
		}
		return true, r.notModified()
	}

	if ims := h.Get("If-Modified-Since"); ims != "" && safe && !modified.IsZero() {
		if t, err := http.ParseTime(ims); err == nil && !modified.After(t) {
			return true, r.notModified()
		}
	}

	return false, nil
}

func (r *Response) notModified() error {
	r.w.Header().Del("Content-Type")
	r.w.Header().Del("Content-Length")
	return r.NoContent(http.StatusNotModified)
}

func quoteETag(etag string) string {
	if strings.HasPrefix(etag, `"`) || strings.HasPrefix(etag, `W/"`) {
		return etag
	}
	return `"` + etag + `"`
}

// etagListMatch reports whether etag matches any entry of a comma separated
// list. Strong comparison rejects weak validators.
func etagListMatch(list, etag string, strong bool) bool {
	if strings.TrimSpace(list) == "*" {
		return true
	}
	if strong && strings.HasPrefix(etag, "W/") {
		return false
	}
	target := strings.TrimPrefix(etag, "W/")
	for candidate := range strings.SplitSeq(list, ",") {
		candidate = strings.TrimSpace(candidate)
		if strong && strings.HasPrefix(candidate, "W/") {
			continue
		}
		if strings.TrimPrefix(candidate, "W/") == target {
			return true
		}
	}
	return false
}
