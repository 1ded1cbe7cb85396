package setup

import (
	"context"
	"fmt"
	"os"

	"knc/internal/classifier"
	"knc/internal/classifier/knn"
	"knc/internal/database"
	"knc/internal/logging"
	"knc/internal/srvenv"
	"knc/internal/trainer"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

type DatabaseConfigProvider interface {
	DatabaseConfig() *database.Config
}

type ClassifierConfigProvider interface {
	ClassifierConfig() *classifier.Config
	ClassifierType() classifier.AlgType
}

type TrainerConfigProvider interface {
	TrainerConfig() *trainer.Config
}

// Setup fills the config from the optional TOML file and the environment,
// then builds the server environment from the providers the config exposes.
func Setup(ctx context.Context, config interface{}) (*srvenv.SrvEnv, error) {
	logger := logging.FromContext(ctx)
	var serverEnvOpts []srvenv.Option

	if file := os.Getenv("KNC_CONFIG_FILE"); file != "" {
		if _, err := toml.DecodeFile(file, config); err != nil {
			return nil, fmt.Errorf("unable to decode config file %s: %w", file, err)
		}
	}
	if err := envconfig.Process("", config); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	var (
		db                  *database.DB
		classifierProvideFn classifier.ProvideFn
	)
	if dbConfigProvider, ok := config.(DatabaseConfigProvider); ok {
		logger.Info("configuring db")
		dbFromEnv, err := database.NewFromEnv(ctx, dbConfigProvider.DatabaseConfig())
		if err != nil {
			return nil, fmt.Errorf("unable to connect to database: %v", err)
		}
		db = dbFromEnv
		serverEnvOpts = append(serverEnvOpts, srvenv.WithDatabase(db))
	}

	if classifierConfigProvider, ok := config.(ClassifierConfigProvider); ok {
		logger.Info("configuring classifier")
		provideFn, err := ProvideClassifierFor(classifierConfigProvider)
		if err != nil {
			return nil, fmt.Errorf("unable create classifier provide function: %v", err)
		}
		classifierProvideFn = provideFn
		serverEnvOpts = append(serverEnvOpts, srvenv.WithClassifier(classifierProvideFn))
	}

	if trainerConfigProvider, ok := config.(TrainerConfigProvider); ok {
		logger.Info("configuring trainer")
		provideFn, err := ProvideTrainerFor(trainerConfigProvider, classifierProvideFn, db)
		if err != nil {
			return nil, fmt.Errorf("unable create trainer provide function: %v", err)
		}
		serverEnvOpts = append(serverEnvOpts, srvenv.WithTrainer(provideFn))
	}

	return srvenv.New(serverEnvOpts...), nil
}

// ProvideClassifierFor resolves the classifier factory for the configured
// algorithm. Bad configuration fails here, not at the first prediction.
func ProvideClassifierFor(provider ClassifierConfigProvider) (classifier.ProvideFn, error) {
	switch provider.ClassifierType() {
	case classifier.AlgTypeKNN:
		cfgKNN := knn.Config{}
		if err := envconfig.Process("", &cfgKNN); err != nil {
			return nil, fmt.Errorf("error loading environment variables: %w", err)
		}
		distFunc, err := knn.DistanceFuncFor(cfgKNN.MetricFuncType)
		if err != nil {
			return nil, fmt.Errorf("unable provide distance function: %v", err)
		}
		provideFn := func() (classifier.Classifier, error) {
			c, err := knn.New(
				knn.WithKNum(cfgKNN.KNum),
				knn.WithDistance(distFunc),
				knn.WithWorkerNum(cfgKNN.WorkerNum),
			)
			if err != nil {
				return nil, fmt.Errorf("unable create knn instance: %v", err)
			}
			return c, nil
		}
		if _, err := provideFn(); err != nil {
			return nil, err
		}
		return provideFn, nil
	default:
		return nil, fmt.Errorf("unknown classifier type: %s", provider.ClassifierType())
	}
}

func ProvideTrainerFor(
	provider TrainerConfigProvider,
	provideClassifierFn classifier.ProvideFn,
	db *database.DB,
) (trainer.ProvideFn, error) {
	cfg := provider.TrainerConfig()
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("dont process trainer env: %w", err)
	}
	return func(shutdownCh chan<- error) (trainer.Manager, error) {
		m, err := trainer.New(
			db,
			provideClassifierFn,
			shutdownCh,
			trainer.WithRebuildDBTime(cfg.RebuildDBTime),
			trainer.WithMaxItemsStored(cfg.MaxItemsStored),
			trainer.WithMaxStorageTime(cfg.MaxStorageTime),
			trainer.WithDBFlushSize(cfg.DbFlushSize),
			trainer.WithDBFlushTime(cfg.DbFlushTime),
		)
		if err != nil {
			return nil, fmt.Errorf("unable create trainer instance: %v", err)
		}
		return m, nil
	}, nil
}
