// @title           roastmarket realtime API
// @version         1.0
// @description     Order tracking, order status and user notifications, with live delivery over /ws.
// @host            localhost:4000
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	_ "roastmarket_backend/docs"
	"roastmarket_backend/internal/app"
)

func main() {
	app.Run()
}
