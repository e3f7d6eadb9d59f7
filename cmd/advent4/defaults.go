package main

import (
	"time"

	"github.com/spf13/viper"
)

func initViperDefaults() {
	// LLM proxy defaults. Both built-in models share llm.api_key.
	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.request_timeout", 90*time.Second)
	viper.SetDefault("llm.models_file", "")

	viper.SetDefault("llm.openai.endpoint", "https://api.proxyapi.ru/openai/v1")
	viper.SetDefault("llm.openai.model", "gpt-4o-mini")
	viper.SetDefault("llm.openai.display_name", "GPT-4o Mini")

	viper.SetDefault("llm.anthropic.endpoint", "https://api.proxyapi.ru/anthropic")
	viper.SetDefault("llm.anthropic.model", "claude-3-5-haiku-20241022")
	viper.SetDefault("llm.anthropic.display_name", "Claude 3.5 Haiku")

	// Telegram
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.allowed_chat_ids", []string{})
	viper.SetDefault("telegram.poll_timeout", 30*time.Second)
	viper.SetDefault("telegram.task_timeout", 2*time.Minute)
	viper.SetDefault("telegram.max_concurrency", 3)
}
