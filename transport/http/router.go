package http

import (
	"github.com/gin-gonic/gin"

	"github.com/KMA-JAVA-CARD/cardpoint/ports"
	"github.com/KMA-JAVA-CARD/cardpoint/service"
)

// SetupRouter wires the terminal API.
func SetupRouter(
	handlers *Handlers,
	tokenizer ports.SessionTokenizer,
	sessions *service.SessionRegistry,
) *gin.Engine {
	router := gin.Default()

	router.GET("/reader/status", handlers.ReaderStatus)
	router.POST("/auth/session", handlers.Authenticate)

	// PIN lifecycle needs no live session: ChangePin re-runs the full
	// verification sequence itself and Unblock is an admin operation.
	card := router.Group("/card")
	{
		card.POST("/pin", handlers.ChangePin)
		card.POST("/unblock", handlers.Unblock)
	}

	router.POST("/members", handlers.RegisterMember)
	router.GET("/members/:serial", handlers.MemberInfo)
	router.GET("/transactions", handlers.Transactions)

	// Session-bound routes.
	authed := router.Group("/")
	authed.Use(SessionMiddleware(tokenizer, sessions))
	{
		authed.DELETE("/auth/session", handlers.EndSession)
		authed.GET("/pos/balance", handlers.Balance)
		authed.POST("/pos/checkout", handlers.Checkout)
		authed.GET("/card/info", handlers.CardInfo)
		authed.PATCH("/profile", handlers.UpdateProfile)
	}

	return router
}
