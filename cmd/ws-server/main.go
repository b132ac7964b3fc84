package main

import (
	"context"
	"log"

	"talkative-backend/internal/api"
	"talkative-backend/internal/api/router"
	"talkative-backend/internal/database"
	"talkative-backend/internal/env"
	"talkative-backend/internal/queue"
	"talkative-backend/internal/realtime"
)

func main() {
	env.Require(
		env.AWSRegion,
		env.AWSID,
		env.AWSSecret,
		env.UserSecretKey,
		env.ChatRedisURL,
	)

	queueManager := queue.NewRequestQueueManager(10, 10)
	db, err := database.NewDatabase()
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}

	hub := realtime.NewHub()
	go hub.Run()
	go hub.SubscribeNotifications(context.Background())

	handler := realtime.NewHandler(hub, nil)

	server := api.NewAPIServer(
		":83",
		queueManager,
		db,
		nil,
		router.UtilsRoutes("/api/ws"),
		router.RealtimeRoutes(handler),
	)

	server.Run()
}
