package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/artify/artify_go_server/config"
	"github.com/artify/artify_go_server/internal/database"
	"github.com/artify/artify_go_server/internal/pkg/email"
	"github.com/artify/artify_go_server/internal/pkg/pubsub"
	"github.com/artify/artify_go_server/internal/repository"
	"github.com/artify/artify_go_server/internal/service"
	"github.com/artify/artify_go_server/internal/worker"
)

var (
	dryRun     = flag.Bool("dry-run", true, "Dry run mode, don't actually delete files")
	tempExpire = flag.Int("temp-expire", 7, "Days to keep local temp image files")
	cleanTemp  = flag.Bool("clean-temp", true, "Clean expired local temp files")
	reconcile  = flag.Bool("reconcile", true, "Fail and refund jobs stuck in processing")
)

func main() {
	flag.Parse()

	log.Println("🧹 Starting cleanup task...")
	log.Printf("Mode: dry-run=%v", *dryRun)

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 连接数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// 1. 对账：超时的 processing 任务按失败处理并退额度
	if *reconcile {
		rdb, err := database.NewRedis(&cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect redis: %v", err)
		}

		timeout := time.Duration(cfg.Queue.JobTimeoutMinutes) * time.Minute
		if timeout <= 0 {
			timeout = 20 * time.Minute
		}

		userRepo := repository.NewUserRepository(db)
		subRepo := repository.NewSubscriptionRepository(db)
		imageRepo := repository.NewImageRepository(db)
		subService := service.NewSubscriptionService(subRepo, cfg)
		mailer := email.NewService(&cfg.Email)
		publisher := pubsub.NewPublisher(rdb)

		log.Printf("\n⏱  Reconciling jobs stuck in processing for over %s...", timeout)
		if *dryRun {
			stuck, err := imageRepo.ListStuckProcessing(time.Now().Add(-timeout))
			if err != nil {
				log.Fatalf("Failed to list stuck jobs: %v", err)
			}
			log.Printf("[DRY RUN] Would fail %d stuck jobs", len(stuck))
		} else {
			r := worker.NewReconciler(imageRepo, userRepo, subService, publisher, mailer, timeout)
			n, err := r.Run(context.Background())
			if err != nil {
				log.Fatalf("Reconciliation failed: %v", err)
			}
			log.Printf("Failed and refunded %d stuck jobs", n)
		}
	}

	// 2. 清理过期的本地临时文件（仅开发模式会产生）
	if *cleanTemp {
		log.Printf("\n📦 Cleaning local temp files older than %d days...", *tempExpire)
		size, count := cleanExpiredTemp(cfg.Upload.TempDir, *tempExpire, *dryRun)
		if *dryRun {
			log.Printf("[DRY RUN] Would delete %d files, %.2f MB", count, float64(size)/1024/1024)
		} else {
			log.Printf("Deleted %d files, %.2f MB", count, float64(size)/1024/1024)
		}
	}

	log.Println("\n✅ Cleanup task finished")
}

// cleanExpiredTemp 删除过期的本地图片文件，返回释放的字节数与文件数
func cleanExpiredTemp(tempDir string, expireDays int, dryRun bool) (int64, int) {
	cutoff := time.Now().AddDate(0, 0, -expireDays)
	var size int64
	var count int

	for _, sub := range []string{"originals", "generated"} {
		root := filepath.Join(tempDir, sub)
		filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return nil
			}
			if info.ModTime().After(cutoff) {
				return nil
			}

			size += info.Size()
			count++
			if dryRun {
				log.Printf("[DRY RUN] Would delete %s", path)
				return nil
			}
			if err := os.Remove(path); err != nil {
				log.Printf("Failed to delete %s: %v", path, err)
			}
			return nil
		})
	}

	return size, count
}
