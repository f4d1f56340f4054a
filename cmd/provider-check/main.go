package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/replypilot/replypilot/internal/models"
	"github.com/replypilot/replypilot/internal/suggest"
)

func main() {
	fmt.Println("🔍 Reply Pilot - Provider Connectivity Test")
	fmt.Println("===========================================")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	engine := suggest.NewEngine(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	testProvider(ctx, engine, models.ProviderGemini, os.Getenv("GEMINI_API_KEY"))
	testProvider(ctx, engine, models.ProviderOpenAI, os.Getenv("OPENAI_API_KEY"))

	fmt.Println("\n✅ Provider connectivity test completed!")
}

func testProvider(ctx context.Context, engine *suggest.Engine, provider models.Provider, apiKey string) {
	fmt.Printf("🔸 Testing %s... ", provider)

	if apiKey == "" {
		fmt.Println("⚠️  SKIPPED (missing API key)")
		return
	}

	start := time.Now()
	reply, err := engine.TestProvider(ctx, provider, apiKey)
	if err != nil {
		fmt.Printf("❌ FAILED: %v\n", err)
		return
	}
	fmt.Printf("✅ OK (%v)\n   ↳ %s\n", time.Since(start).Round(time.Millisecond), reply)
}
