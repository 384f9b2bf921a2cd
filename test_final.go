//go:build ignore
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/diogo/grantchat/internal/api"
	"github.com/diogo/grantchat/internal/auth"
	"github.com/diogo/grantchat/internal/config"
)

// Smoke run against a live backend (or `grantchat mock-server`):
//
//	go run test_final.go
func main() {
	fmt.Println("=== Session Smoke Test ===")

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Config failed: %v\n", err)
		os.Exit(1)
	}
	client, err := api.NewClient(cfg.APIURL)
	if err != nil {
		fmt.Printf("Client failed: %v\n", err)
		os.Exit(1)
	}

	userID := auth.UserIDFor(auth.DemoEmail)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	fmt.Printf("[%s] Starting session at %s...\n", time.Now().Format("15:04:05"), client.BaseURL())
	start := client.StartSession(ctx, userID)
	fmt.Printf("Session %q (fallback=%v): %s\n", start.SessionID, start.Fallback, start.Message)

	for _, msg := range []string{"hello", "what grants are open?"} {
		t0 := time.Now()
		reply := client.SendMessage(ctx, userID, msg)
		fmt.Printf("[%s] %q -> %q (failed=%v ended=%v, %v)\n",
			time.Now().Format("15:04:05"), msg, reply.Text, reply.Failed, reply.SessionEnded, time.Since(t0).Round(time.Millisecond))
		if reply.SessionEnded {
			break
		}
	}

	convs, err := client.ListConversations(ctx, userID)
	if err != nil {
		fmt.Printf("List failed: %v\n", err)
	} else {
		fmt.Printf("Backend has %d conversation(s)\n", len(convs))
	}

	client.EndSession(ctx, userID)
	fmt.Println("Done")
}
