package controllers

import (
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/angelmondragon/filedrop-backend/api/responses"
	"github.com/angelmondragon/filedrop-backend/internal/uploads"
	"github.com/angelmondragon/filedrop-backend/pkg/logger"
)

// UploadContent serves the bytes of a finished upload. Local storage streams
// through the service; object storage answers with a temporary redirect to a
// signed URL. The secret, when required, rides in the query string so links
// stay shareable.
func UploadContent(svc uploads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUploadID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		secret := r.URL.Query().Get("secret")

		res, err := svc.Content(r.Context(), id, secret)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if res.Mode == uploads.ContentModeRedirect {
			http.Redirect(w, r, res.RedirectURL, http.StatusFound)
			return
		}

		defer res.Stream.Close()

		w.Header().Set("Content-Type", res.ContentType)
		w.Header().Set("Content-Length", strconv.FormatInt(res.Size, 10))
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.FileName}))
		if _, err := io.Copy(w, res.Stream); err != nil && logg != nil {
			// Headers are gone at this point; all we can do is log.
			logg.Warn(r.Context(), "content stream interrupted")
		}
	}
}
