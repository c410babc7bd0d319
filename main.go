package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quel-marketing-studio/modules/auth"
	"quel-marketing-studio/modules/common/config"
	"quel-marketing-studio/modules/common/slot"
	"quel-marketing-studio/modules/export"
	"quel-marketing-studio/modules/generation"
	"quel-marketing-studio/modules/history"
	"quel-marketing-studio/modules/studio"
)

func main() {
	// 환경변수 로드
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// 히스토리/테마 저장소
	slots, err := slot.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to open %s slots: %v", cfg.SlotBackend, err)
	}
	defer slots.Close()

	// 인증 provider (AUTH_PROVIDER=none이면 nil)
	provider, err := auth.NewProviderFromConfig(context.Background(), cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize auth provider: %v", err)
	}

	hub := studio.NewEventHub()
	handler := studio.NewHandler(studio.Deps{
		Generator:   generation.NewClientFromConfig(cfg, hub),
		History:     history.NewStore(slots),
		Preferences: history.NewPreferences(slots),
		Session:     auth.NewSession(provider),
		Hub:         hub,
		ExportDir:   cfg.ExportDir,
		Bucket:      export.NewBucketFromConfig(cfg),
		SignInPage:  cfg.SignInPage,

		AllowedOrigins: cfg.AllowedOrigins,
	})

	server := &http.Server{
		Addr:    cfg.GetListenAddr(),
		Handler: handler.NewRouter(),
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		log.Println("🛑 Shutting down studio server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("⚠️ Shutdown error: %v", err)
		}
	}()

	log.Printf("🚀 Quel Marketing Studio starting on %s", cfg.GetListenAddr())
	log.Printf("🎨 Backend: %s", cfg.BackendURL)
	log.Printf("📡 WebSocket endpoint: ws://localhost:%s/ws", cfg.Port)
	log.Printf("❤️  Health check: http://localhost:%s/health", cfg.Port)
	log.Printf("📊 Metrics: http://localhost:%s/metrics", cfg.Port)

	// 서버 시작
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed to start: %v", err)
	}
}
