// Command chatcli talks to the receptionist from a terminal using the same
// configuration as the API server, with an in-memory ledger.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/frontdesk-ai/cmd/mainconfig"
	"github.com/wolfman30/frontdesk-ai/internal/appointments"
	"github.com/wolfman30/frontdesk-ai/internal/clinic"
	appconfig "github.com/wolfman30/frontdesk-ai/internal/config"
	"github.com/wolfman30/frontdesk-ai/internal/conversation"
	"github.com/wolfman30/frontdesk-ai/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := appconfig.Load()
	logger := logging.NewWithFormat("warn", "text")

	ctx := context.Background()
	profile := clinic.FromSettings(cfg.Clinic)
	profiles := clinic.NewStore(nil, profile)

	awsClients, err := mainconfig.NewAWSClients(ctx, cfg)
	if err != nil {
		log.Fatalf("aws config: %v", err)
	}
	llm, err := conversation.NewLLMClientFromConfig(ctx, cfg, awsClients.Bedrock, nil, logger)
	if err != nil {
		log.Fatalf("llm: %v", err)
	}

	svc := appointments.NewService(appointments.NewMemoryRepository(), logger, appointments.WithSlots(profile.Slots))
	agent := conversation.NewAgent(llm, svc, conversation.NewMemorySessionStore(), profiles, logger,
		conversation.WithGeneration(cfg.LLMMaxTokens, cfg.LLMTemperature),
	)

	sess, err := agent.StartSession(ctx)
	if err != nil {
		log.Fatalf("start session: %v", err)
	}
	fmt.Printf("[%s via %s] type /quit to exit, /reset to start over, /book to list bookings\n\n", profile.Name, cfg.LLMProvider)
	fmt.Printf("%s\n\n", sess.Messages[0].Content)

	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !in.Scan() {
			return
		}
		text := strings.TrimSpace(in.Text())
		switch text {
		case "":
			continue
		case "/quit":
			return
		case "/reset":
			if sess, err = agent.ClearSession(ctx, sess.ID); err != nil {
				log.Fatalf("reset: %v", err)
			}
			fmt.Printf("%s\n\n", sess.Messages[0].Content)
			continue
		case "/book":
			printLedger(ctx, svc)
			continue
		}

		start := time.Now()
		reply, err := agent.HandleMessage(ctx, sess.ID, text)
		if err != nil {
			fmt.Printf("error: %v\n\n", err)
			continue
		}
		fmt.Printf("%s\n", reply.Message)
		if reply.Action != nil {
			fmt.Printf("  [%s: %s]\n", reply.Action.Type, reply.Action.Outcome)
		}
		fmt.Printf("  (%v)\n\n", time.Since(start).Round(time.Millisecond))
	}
}

func printLedger(ctx context.Context, svc *appointments.Service) {
	appts, err := svc.List(ctx, "")
	if err != nil {
		fmt.Printf("error: %v\n\n", err)
		return
	}
	if len(appts) == 0 {
		fmt.Println("no confirmed appointments")
	}
	for _, a := range appts {
		fmt.Printf("  #%d %s %s  %s (%s)\n", a.ID, a.Date, a.Time, a.Name, a.Phone)
	}
	fmt.Println()
}
