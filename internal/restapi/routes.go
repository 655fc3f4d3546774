package restapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

func (api *RestAPI) routes() *httprouter.Router {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(api.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(api.methodNotAllowedResponse)
	router.HandleOPTIONS = false

	router.Handler(http.MethodGet, "/api", api.cache.Middleware(http.HandlerFunc(api.departuresHandler)))
	return router
}
