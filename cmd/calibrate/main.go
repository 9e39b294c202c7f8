// Command calibrate captures one frame of the monitored chat, runs OCR on
// it, and prints the recognized fragments and resulting messages. Use it to
// tune confidence_floor, origin_threshold, line_tolerance, and the capture
// region for a particular window layout.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/awsl-bot/awsl-bot/internal/capture"
	"github.com/awsl-bot/awsl-bot/internal/classify"
	"github.com/awsl-bot/awsl-bot/internal/config"
	"github.com/awsl-bot/awsl-bot/internal/ocr"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ./awslbot.yaml)")
	saveFrame := flag.String("save-frame", "", "optionally write the captured frame to this file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	if cfg.VisionAPIKey == "" {
		log.Fatal("vision.api_key is required")
	}

	frames, err := capture.NewScreenCapture(cfg.ChatName)
	if err != nil {
		log.Fatal("Failed to initialize screen capture: ", err)
	}
	defer frames.Cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	fmt.Printf("Capturing region %+v of %q...\n", cfg.Region, cfg.ChatName)
	frame, err := frames.Capture(ctx, cfg.Region)
	if err != nil {
		log.Fatal("Capture failed: ", err)
	}
	fmt.Printf("Captured %d bytes\n", len(frame))

	if *saveFrame != "" {
		if err := os.WriteFile(*saveFrame, frame, 0644); err != nil {
			log.Fatal("Failed to save frame: ", err)
		}
		fmt.Printf("Frame saved to %s\n", *saveFrame)
	}

	recognizer := ocr.NewGoogleVisionClient(cfg.VisionAPIKey)
	fragments, err := recognizer.Recognize(ctx, frame)
	if err != nil {
		log.Fatal("Recognition failed: ", err)
	}

	fmt.Printf("\n=== Fragments (%d) ===\n", len(fragments))
	fmt.Printf("%-8s %-8s %-6s  %s\n", "x", "y", "conf", "text")
	for _, f := range fragments {
		marker := ""
		if f.Confidence < cfg.ConfidenceFloor {
			marker = "  [below floor]"
		}
		fmt.Printf("%-8.4f %-8.4f %-6.2f  %q%s\n", f.XRatio, f.YRatio, f.Confidence, f.Text, marker)
	}

	classifier := classify.NewClassifier(cfg.ConfidenceFloor, cfg.OriginThreshold, cfg.LineTolerance)
	messages := classifier.Classify(fragments, time.Now())

	fmt.Printf("\n=== Messages (%d) ===\n", len(messages))
	for _, m := range messages {
		fmt.Printf("[%-5s] %q  (fingerprint %s)\n", m.Origin, m.Text, m.Fingerprint[:12])
	}
}
