// Command chat-probe drives a scripted conversation through the chat service
// against the configured completion provider and prints every reply.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/hrygo/confidant/internal/profile"
	"github.com/hrygo/confidant/server/ai"
	"github.com/hrygo/confidant/server/service/chat"
	"github.com/hrygo/confidant/store"
	"github.com/hrygo/confidant/store/db"
)

const probeUserID = int32(1)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	_ = godotenv.Load()

	log.Println("loading profile...")
	instanceProfile := &profile.Profile{
		Mode:    "dev",
		Driver:  "sqlite",
		Data:    os.TempDir(),
		AIModel: os.Getenv("CONFIDANT_AI_MODEL"),
	}
	instanceProfile.FromEnv()
	if err := instanceProfile.Validate(); err != nil {
		log.Fatalf("invalid profile: %v", err)
	}
	if !instanceProfile.IsAIConfigured() {
		log.Fatal("no API key. Set OPENROUTER_API_KEY in .env")
	}

	log.Println("opening database...")
	dbDriver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		log.Fatalf("failed to create db driver: %v", err)
	}
	storeInstance := store.New(dbDriver, instanceProfile)
	defer storeInstance.Close()

	ctx := context.Background()
	if err := storeInstance.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	provider := ai.NewProvider(&ai.Config{
		BaseURL: instanceProfile.AIBaseURL,
		APIKey:  instanceProfile.AIAPIKey,
		Model:   instanceProfile.AIModel,
		Timeout: instanceProfile.CompletionTimeout,
	})
	persona, err := chat.LoadPersona(instanceProfile.PersonaFile)
	if err != nil {
		log.Fatalf("failed to load persona: %v", err)
	}
	summarizer := chat.NewSummarizer(storeInstance, provider, nil, chat.SummarizerConfig{Timeout: instanceProfile.CompletionTimeout})
	service := chat.NewService(storeInstance, provider, nil, persona, nil, chat.Config{
		Model:             instanceProfile.AIModel,
		HistoryWindow:     instanceProfile.HistoryWindow,
		CompletionTimeout: instanceProfile.CompletionTimeout,
	})

	if _, err := chat.NewPreferencesService(storeInstance).Save(ctx, probeUserID, chat.Preferences{
		PreferredName: "Alex",
		Likes:         "hiking",
	}); err != nil {
		log.Fatalf("failed to save preferences: %v", err)
	}

	conversation, err := service.CreateConversation(ctx, probeUserID, "Probe")
	if err != nil {
		log.Fatalf("failed to create conversation: %v", err)
	}

	inputs := os.Args[1:]
	if len(inputs) == 0 {
		inputs = []string{
			"Hi, I had a long week.",
			"I went hiking on Saturday and it helped a bit.",
			"What do you remember about my weekend?",
		}
	}

	fmt.Println("\n========================================")
	fmt.Printf("  chat probe, model %s\n", service.ModelInfo().Model)
	fmt.Println("========================================")

	for i, input := range inputs {
		fmt.Printf("\n[%d/%d] > %s\n", i+1, len(inputs), input)

		startTime := time.Now()
		reply, err := service.SendMessage(ctx, chat.SendMessageRequest{
			UserID:         probeUserID,
			ConversationID: conversation.ID,
			Content:        input,
		})
		duration := time.Since(startTime)
		if err != nil {
			log.Printf("send failed: %v", err)
			continue
		}

		fmt.Println("reply:", reply.Content)
		fmt.Printf("took: %v, messages: %d\n", duration, reply.MessageCount)
		fmt.Println("------------------------------------------------")
	}

	log.Println("summarizing...")
	if err := summarizer.Summarize(ctx, chat.SummaryJob{ConversationID: conversation.ID, Model: instanceProfile.AIModel}); err != nil {
		log.Fatalf("failed to summarize: %v", err)
	}
	conversation, err = storeInstance.GetConversation(ctx, &store.FindConversation{ID: &conversation.ID})
	if err != nil || conversation == nil {
		log.Fatalf("failed to reload conversation: %v", err)
	}
	fmt.Println("\nsummary:", conversation.Summary)
}
