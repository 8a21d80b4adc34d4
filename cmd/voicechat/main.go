package main

import (
	"github.com/joho/godotenv"

	"github.com/kieran/voicechat/internal/commands"
)

func main() {
	// .env 可选，缺失时只使用系统环境变量
	_ = godotenv.Load()
	commands.Execute()
}
