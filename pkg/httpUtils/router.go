// coedit - real-time collaborative document editing
// Copyright (C) 2026 the coedit authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package httpUtils

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/coedit/coedit/pkg/sharedTypes"
)

type Router struct {
	*mux.Router
}

type RouterOptions struct {
	StatusMessage string

	// Ready reports whether the service should pass load-balancer checks.
	Ready func() bool
}

func NewRouter(options *RouterOptions) *Router {
	r := mux.NewRouter()
	r.Use(recoverMiddleware)

	msg := options.StatusMessage
	if msg == "" {
		msg = "coedit is alive"
	}
	status := func(w http.ResponseWriter, _ *http.Request) {
		if options.Ready != nil && !options.Ready() {
			RespondPlain(w, http.StatusServiceUnavailable, "shutting down")
			return
		}
		RespondPlain(w, http.StatusOK, msg)
	}
	r.HandleFunc("/status", status).Methods(http.MethodGet, http.MethodHead)
	return &Router{Router: r}
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recover() != nil {
				w.WriteHeader(http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// ParseUUIDVar reads a path variable as UUID.
func ParseUUIDVar(r *http.Request, name string) (sharedTypes.UUID, error) {
	return sharedTypes.ParseUUID(mux.Vars(r)[name])
}
