package config

import (
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

const sourcesPathEnv = "POSTFORGE_SOURCES"

// Sources holds the per-source tuning that is data, not code: which feeds
// to poll, which subreddits to watch, and the topics the ranker scores
// against. A YAML file pointed at by POSTFORGE_SOURCES overrides defaults.
type Sources struct {
	Feeds      []string `yaml:"feeds"`
	Subreddits []string `yaml:"subreddits"`
	Topics     []string `yaml:"topics"`
}

func LoadSources() Sources {
	cfg := defaultSources()

	path := os.Getenv(sourcesPathEnv)
	if path == "" {
		return cfg
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("[Config] Cannot read sources file, using defaults",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return cfg
	}

	var fileCfg Sources
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		slog.Warn("[Config] Cannot parse sources file, using defaults",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return cfg
	}

	if len(fileCfg.Feeds) > 0 {
		cfg.Feeds = fileCfg.Feeds
	}
	if len(fileCfg.Subreddits) > 0 {
		cfg.Subreddits = fileCfg.Subreddits
	}
	if len(fileCfg.Topics) > 0 {
		cfg.Topics = fileCfg.Topics
	}
	return cfg
}

func defaultSources() Sources {
	return Sources{
		Feeds: []string{
			"https://lilianweng.github.io/index.xml",
			"https://simonwillison.net/atom/everything/",
			"https://www.latent.space/feed",
			"https://blog.langchain.dev/rss/",
			"https://openai.com/blog/rss.xml",
			"https://huggingface.co/blog/feed.xml",
			"https://thesequence.substack.com/feed",
		},
		Subreddits: []string{
			"MachineLearning",
			"LocalLLaMA",
			"LangChain",
		},
		Topics: []string{
			"AI agents and agentic systems",
			"RAG (Retrieval-Augmented Generation)",
			"Evaluation frameworks for LLMs",
			"Production deployments of AI/ML",
			"Database-aware agents",
		},
	}
}
