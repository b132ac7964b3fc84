package main

import (
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
		env.AuthRedisURL,
		env.ChatRedisURL,
	)

	queueManager := queue.NewRequestQueueManager(10, 10)
	db, err := database.NewDatabase()
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}

	server := api.NewAPIServer(
		":81",
		queueManager,
		db,
		realtime.NewNotifier(),
		router.UtilsRoutes("/api"),
		router.AuthRoutes("/api"),
		router.ChatRoutes("/api"),
		router.MessageRoutes("/api"),
		router.UploadRoutes("/api"),
	)

	server.Run()
}
