package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/kieran/voicechat/internal/config"
	speechmodel "github.com/kieran/voicechat/internal/model/speech"
	"github.com/kieran/voicechat/internal/service/ai"
	"github.com/kieran/voicechat/internal/service/audio"
	"github.com/kieran/voicechat/internal/service/pipeline"
	"github.com/kieran/voicechat/internal/service/speech"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	mode := flag.String("mode", "full", "测试模式: asr (转码+识别) 或 full (转码+识别+对话)")
	audioPath := flag.String("audio", "", "输入音频文件路径")
	language := flag.String("lang", "", "语言代码，默认使用配置中的语言")
	timeout := flag.Duration("timeout", 60*time.Second, "请求超时时间")

	flag.Parse()

	if *mode != "asr" && *mode != "full" {
		flag.Usage()
		log.Fatal("请通过 -mode=asr 或 -mode=full 指定测试模式")
	}
	if *audioPath == "" {
		log.Fatal("需要通过 -audio 指定音频文件路径")
	}

	if !cfg.Speech.Enabled() {
		log.Fatalf("识别服务 %s 未配置凭证", cfg.Speech.Provider)
	}
	speechCfg := cfg.Speech.ToModel()
	if *language != "" {
		speechCfg.Language = *language
	}
	transcriber, err := speech.NewTranscriber(cfg.Speech.Provider, speechCfg)
	if err != nil {
		log.Fatalf("识别服务初始化失败: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	converter := audio.NewFFmpegConverter(cfg.Pipeline.FFmpegPath)

	switch *mode {
	case "asr":
		runASR(ctx, cfg, converter, transcriber, *audioPath)
	case "full":
		runFull(ctx, cfg, converter, transcriber, *audioPath)
	}
}

// runASR 只执行转码与识别，便于单独排查识别服务
func runASR(ctx context.Context, cfg *config.Config, converter audio.Converter, transcriber speech.Transcriber, audioPath string) {
	ws, err := audio.NewWorkspace(cfg.Pipeline.TempDir)
	if err != nil {
		log.Fatalf("创建临时目录失败: %v", err)
	}
	defer ws.Close()

	target := transcriber.InputFormat()
	out, err := ws.Create("manual", target)
	if err != nil {
		log.Fatalf("分配转码文件失败: %v", err)
	}
	out.Close()
	dst := out.Name()

	start := time.Now()
	if err := converter.Convert(ctx, audioPath, dst, target); err != nil {
		log.Fatalf("转码失败: %v", err)
	}
	log.Printf("转码完成: %s -> %s (%s)", audioPath, dst, time.Since(start))

	resp, err := transcriber.Transcribe(ctx, &speechmodel.TranscriptionRequest{
		RequestID: ws.ID(),
		AudioPath: dst,
		Format:    target,
	})
	if err != nil {
		log.Fatalf("识别失败: %v", err)
	}
	log.Printf("识别成功 (%s/%s): text=%q duration=%dms", transcriber.Name(), transcriber.Model(), resp.Text, resp.Duration)
}

// runFull 通过与 HTTP 服务相同的流水线处理本地文件
func runFull(ctx context.Context, cfg *config.Config, converter audio.Converter, transcriber speech.Transcriber, audioPath string) {
	if !cfg.AI.Enabled() {
		log.Fatalf("对话服务 %s 未配置凭证或模型", cfg.AI.Provider)
	}
	completer, err := ai.NewCompleter(ctx, cfg.AI)
	if err != nil {
		log.Fatalf("对话服务初始化失败: %v", err)
	}

	file, err := os.Open(audioPath)
	if err != nil {
		log.Fatalf("打开音频文件失败: %v", err)
	}
	defer file.Close()

	svc := pipeline.NewService(cfg.Pipeline.TempDir, converter, transcriber, completer, nil)

	start := time.Now()
	exchange, err := svc.Process(ctx, pipeline.Upload{
		RequestID: fmt.Sprintf("manual-%d", time.Now().UnixNano()),
		Filename:  filepath.Base(audioPath),
		Body:      file,
	})
	if err != nil {
		stage, _ := pipeline.FailedStage(err)
		log.Fatalf("流水线失败 (stage=%s): %v", stage, err)
	}

	log.Printf("完成，耗时 %s", time.Since(start))
	fmt.Printf("%s: %s\n", exchange.UserMessage.Role, exchange.UserMessage.Content)
	fmt.Printf("%s: %s\n", exchange.AssistantMessage.Role, exchange.AssistantMessage.Content)
}
