package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/quizhall/quizhall-backend/internal/config"
	"github.com/quizhall/quizhall-backend/internal/database"
	"github.com/quizhall/quizhall-backend/internal/logger"
	"github.com/quizhall/quizhall-backend/internal/model"
	"github.com/quizhall/quizhall-backend/internal/repository"
)

// load-quizzes imports quiz definitions from a JSON file into PostgreSQL.
// The file maps quiz id to definition:
//
//	{
//	  "capitals": {
//	    "title": "World Capitals",
//	    "settings": {"timeLimit": 10, "maxAttempts": 2, "randomQuestionsCount": 0},
//	    "questions": [...]
//	  }
//	}
//
// Existing quizzes with the same id are replaced. Running attempts keep their
// question snapshot, so a reload never corrupts them.
func main() {
	var file string
	flag.StringVar(&file, "file", "quizzes.json", "Path to the quiz definition file")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	raw, err := os.ReadFile(file)
	if err != nil {
		log.Fatal().Err(err).Str("file", file).Msg("Failed to read quiz file")
	}

	var quizzes map[string]model.Quiz
	if err := json.Unmarshal(raw, &quizzes); err != nil {
		log.Fatal().Err(err).Msg("Failed to parse quiz file")
	}

	ctx := context.Background()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// The parsed-quiz cache must not serve stale definitions after an import.
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	quizRepo := repository.NewQuizRepository(pool)

	imported := 0
	for id, quiz := range quizzes {
		quiz.ID = id
		if quiz.Title == "" {
			log.Warn().Str("quiz_id", id).Msg("Skipping quiz without a title")
			continue
		}
		if len(quiz.Questions) == 0 {
			log.Warn().Str("quiz_id", id).Msg("Skipping quiz without questions")
			continue
		}

		if err := quizRepo.Upsert(ctx, &quiz); err != nil {
			log.Fatal().Err(err).Str("quiz_id", id).Msg("Failed to import quiz")
		}
		if err := rdb.Del(ctx, config.CacheKey.QuizPayloadKey(id)).Err(); err != nil {
			log.Warn().Err(err).Str("quiz_id", id).Msg("Failed to invalidate quiz cache")
		}

		log.Info().Str("quiz_id", id).Str("title", quiz.Title).Int("questions", len(quiz.Questions)).Msg("Imported quiz")
		imported++
	}

	fmt.Printf("Imported %d of %d quizzes\n", imported, len(quizzes))
}
