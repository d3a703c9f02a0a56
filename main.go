package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tech-interview-engine/internal/api"
	"tech-interview-engine/internal/config"
	"tech-interview-engine/internal/engine"
	"tech-interview-engine/internal/evaluator"
	"tech-interview-engine/internal/lexicon"
	"tech-interview-engine/internal/metrics"
	"tech-interview-engine/internal/planner"
	"tech-interview-engine/internal/proctor"
	"tech-interview-engine/internal/report"
	"tech-interview-engine/internal/server"
	"tech-interview-engine/internal/session"
	"tech-interview-engine/internal/transcript"
)

func main() {
	fmt.Println("🚀 Запуск Interview Session Engine...")

	// Загружаем переменные окружения
	if err := godotenv.Load(); err != nil {
		log.Println("Файл .env не найден, использую переменные окружения")
	}

	appCfg := config.LoadAppConfig()

	// Загружаем шаблоны интервью
	templates, err := config.Load("config/interview.yaml")
	if err != nil {
		log.Printf("⚠️ Ошибка загрузки шаблонов интервью: %v", err)
		log.Println("Сервер будет работать без шаблонов")
		templates = nil
	}

	// Инициализируем сервисы
	fmt.Println("🔧 Инициализация сервисов...")

	// Удаленный бэкенд оценки и генерации вопросов
	var gemini *api.GeminiClient
	if err := appCfg.Gemini.ValidateConfig(); err != nil {
		log.Printf("⚠️ Gemini недоступен: %v", err)
		log.Println("Оценка ответов будет полностью эвристической")
	} else {
		gemini = api.NewGeminiClient(appCfg.Gemini)
		fmt.Printf("✅ Gemini инициализирован: %v\n", appCfg.Gemini.GetModelInfo()["model"])
	}

	// Словарь нормализации и эвристической оценки
	lex, err := lexicon.Load(appCfg.Interview.DictionaryPath)
	if err != nil {
		log.Printf("⚠️ Ошибка загрузки словаря, использую встроенный: %v", err)
		lex = lexicon.Default()
	} else {
		fmt.Println("✅ Словарь оценки загружен")
	}

	// Долговременное хранилище транскриптов
	if dir := filepath.Dir(appCfg.Interview.StorePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Printf("⚠️ Ошибка создания каталога данных: %v", err)
		}
	}
	transcripts, err := transcript.Open(appCfg.Interview.StorePath)
	if err != nil {
		log.Printf("⚠️ Ошибка открытия хранилища, работаю в памяти: %v", err)
		transcripts = transcript.NewMemory()
	} else {
		fmt.Println("✅ Хранилище транскриптов открыто")
	}
	defer transcripts.Close()

	var remote evaluator.Generator
	var remotePlanner planner.Generator
	var remoteReport report.RemoteGenerator
	if gemini != nil {
		remote = gemini
		remotePlanner = gemini
		remoteReport = gemini
	}

	evalService := evaluator.New(remote, lex, appCfg.Gemini.Timeout)
	planService := planner.New(remotePlanner, rand.New(rand.NewSource(time.Now().UnixNano())),
		appCfg.Interview.FollowupCap, appCfg.Gemini.Timeout)
	reportService := report.New(remoteReport, appCfg.Gemini.Timeout)
	proctorService := proctor.New(appCfg.Interview.EvidenceDir)
	ollama := api.NewOllamaClient(appCfg.Ollama)

	sessions := session.NewStore()
	sessions.StartCleanup(1*time.Hour, 24*time.Hour)

	m := metrics.NewMetrics()
	eng := engine.New(sessions, evalService, planService, transcripts, reportService,
		proctorService, ollama, m, appCfg.Interview.Duration)

	srv := server.New(appCfg.Server, eng, templates)

	// Выводим информацию о конфигурации
	fmt.Println("\n📋 Конфигурация:")
	if templates != nil {
		fmt.Printf("• Шаблонов интервью: %d\n", templates.GetTotalTemplates())
	}
	fmt.Printf("• Длительность интервью: %s\n", appCfg.Interview.Duration)
	fmt.Printf("• Вопросов на тему: %d\n", appCfg.Interview.FollowupCap)
	if transcripts.Degraded() {
		fmt.Println("• Хранилище: только память ⚠️")
	} else {
		fmt.Printf("• Хранилище: %s\n", appCfg.Interview.StorePath)
	}
	if gemini != nil {
		fmt.Println("• Удаленная оценка: включена 🧠")
	} else {
		fmt.Println("• Удаленная оценка: отключена ⚠️")
	}

	// Останавливаемся по сигналу, дожидаясь активных интервью
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		fmt.Println("\n⏳ Остановка сервера...")
		ctx, cancel := context.WithTimeout(context.Background(), appCfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("⚠️ Ошибка остановки сервера: %v", err)
		}
	}()

	if err := srv.Start(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Ошибка запуска сервера: %v", err)
	}
	fmt.Println("✅ Сервер остановлен")
}
