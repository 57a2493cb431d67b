package reload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/chenyanchen/swappable"
)

const jsonCType = "application/json"

type errorBody struct {
	Error  string `json:"error"`
	Result Result `json:"result"`
}

// Handler exposes an admin API for one trigger under prefix.
//
//	POST prefix/reload[?key=name]  fire a reload with hook
//	GET  prefix/status             current status of the target
//
// A published reload answers 200, a rejected one 409 and a failed
// construction 500. A request whose context ends before its reload result is
// ready answers 503. prefix is rooted at "/" when it is not already.
func Handler[T any](prefix string, trigger *Trigger[T], hook swappable.Hook[T]) http.Handler {
	prefix = strings.TrimRight(prefix, "/")
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}

	router := &httprouter.Router{
		RedirectTrailingSlash:  false,
		RedirectFixedPath:      false,
		HandleMethodNotAllowed: true,
	}

	router.POST(prefix+"/reload", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		key := r.URL.Query().Get("key")
		if key == "" {
			key = "http"
		}
		result, err := trigger.Fire(r.Context(), key, hook)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				status = http.StatusServiceUnavailable
			}
			writeJSON(w, status, errorBody{Error: err.Error(), Result: result})
			return
		}
		status := http.StatusOK
		if result.Outcome != swappable.Published {
			status = http.StatusConflict
		}
		writeJSON(w, status, result)
	})

	router.GET(prefix+"/status", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		writeJSON(w, http.StatusOK, trigger.Target().Status())
	})

	return router
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	payload, err := json.Marshal(body)
	if err != nil {
		http.Error(w, fmt.Sprintf("encode response: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", jsonCType)
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}
