package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"fleet-ops-api/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	logrus "github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// LivePredictions streams prediction events published on Redis to a
// dashboard over a WebSocket.
func LivePredictions(cache *services.CacheService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cache.Available() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live updates unavailable"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logrus.WithError(err).Warn("websocket upgrade failed")
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		// Read pump: detect client disconnect
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		pubsub := cache.Subscribe(ctx, services.PredictionsChannel)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				err := conn.WriteJSON(gin.H{
					"type": "prediction",
					"data": json.RawMessage(msg.Payload),
				})
				if err != nil {
					logrus.WithError(err).Debug("ws write error")
					return
				}
			}
		}
	}
}
