package httpmiddleware

import (
	"net/http"

	"github.com/go-faster/jx"
)

// WriteError writes {"code": status, "message": msg}. The API handlers use
// the same body so clients see one error shape.
func WriteError(w http.ResponseWriter, status int, msg string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(msg)
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
