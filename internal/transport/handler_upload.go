package transport

import (
	"net/http"

	"github.com/lkpmandiri/backoffice/model"
)

// maxUploadMemory bounds multipart parsing; larger files spill to disk.
const maxUploadMemory = 8 << 20

// handleUpload validates an admin image locally, then relays it to the API.
// The response is the stored file's public URL, which the form writes into
// its image field.
func handleUpload(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			WriteError(w, model.NewBadRequestError("The request is not valid multipart form data"))
			return
		}

		folder := r.FormValue("folder")
		file, header, err := r.FormFile("file")
		if err != nil {
			WriteError(w, model.NewBadRequestError("The request carries no file"))
			return
		}
		defer file.Close()

		contentType := header.Header.Get("Content-Type")
		result, err := deps.Uploads.Upload(
			r.Context(), folder, header.Filename, contentType, file, header.Size, nil)
		if err != nil {
			if deps.Metrics != nil {
				deps.Metrics.RecordUpload(folder, uploadFailureKind(err), 0)
			}
			WriteError(w, err)
			return
		}

		if deps.Metrics != nil {
			deps.Metrics.RecordUpload(folder, "ok", header.Size)
		}
		WriteJSON(w, http.StatusOK, result)
	}
}

// uploadFailureKind separates local rejections from relay failures.
func uploadFailureKind(err error) string {
	switch {
	case model.IsCode(err, model.ErrUploadTooLarge),
		model.IsCode(err, model.ErrUnsupportedMedia),
		model.IsCode(err, model.ErrUnknownUploadScope):
		return "rejected"
	default:
		return "failed"
	}
}
