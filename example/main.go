// Example of embedding the relay in an existing gin application with a
// custom session keying strategy.
package main

import (
	stdlog "log"

	"github.com/gin-gonic/gin"
	"github.com/sashabaranov/go-openai"

	"github.com/ghiac/modelrelay"
	"github.com/ghiac/modelrelay/config"
	"github.com/ghiac/modelrelay/engine"
	"github.com/ghiac/modelrelay/model"
	"github.com/ghiac/modelrelay/store"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}

	// Share one store between the relay and the host application.
	st := store.NewMemoryStore(cfg.TTL())

	relay := modelrelay.NewWithStore(cfg, st)
	defer relay.Close()

	// Key sessions by the user field alone, one conversation per user.
	relay.Engine().SetKeyFunc(func(req openai.ChatCompletionRequest) model.SessionKey {
		userID := req.User
		if userID == "" {
			userID = "anonymous"
		}
		return model.SessionKey{UserID: userID, SessionID: "main"}
	})

	router := gin.Default()
	relay.RegisterRoutes(router)

	// Host application routes live next to the relay's.
	router.GET("/whoami", func(c *gin.Context) {
		c.JSON(200, gin.H{"policy": engine.SessionPolicy})
	})

	if err := router.Run(cfg.Addr()); err != nil {
		stdlog.Fatalf("Server stopped: %v", err)
	}
}
