package middleware

import (
	midsec "LinkChat/middleware/security"

	"github.com/gin-gonic/gin"
)

type RouteOpt struct {
	IsAuth bool
}

var authOptions *midsec.Options

// Config installs the auth options the wrappers below use.
func Config(opts *midsec.Options) {
	authOptions = opts
}

func GET(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		r.GET(path, midsec.Middleware(authOptions), handler)
	} else {
		r.GET(path, handler)
	}
}

func POST(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		r.POST(path, midsec.Middleware(authOptions), handler)
	} else {
		r.POST(path, handler)
	}
}

func PUT(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		r.PUT(path, midsec.Middleware(authOptions), handler)
	} else {
		r.PUT(path, handler)
	}
}
