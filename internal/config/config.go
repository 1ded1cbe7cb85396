package knc

import (
	"knc/internal/classifier"
	"knc/internal/classifier/knn"
	"knc/internal/collect"
	"knc/internal/database"
	"knc/internal/evaluate"
	"knc/internal/experiment"
	"knc/internal/predict"
	"knc/internal/setup"
	"knc/internal/trainer"
)

var (
	_ setup.DatabaseConfigProvider   = (*Config)(nil)
	_ setup.ClassifierConfigProvider = (*Config)(nil)
	_ setup.TrainerConfigProvider    = (*Config)(nil)
)

type Config struct {
	SrvAddr    string `envconfig:"KNC_ADDR" default:":8786"`
	Database   database.Config
	Classifier classifier.Config
	KNN        knn.Config
	Trainer    trainer.Config
	Collect    collect.Config
	Predict    predict.Config
	Evaluate   evaluate.Config
	Experiment experiment.Config
}

func (c Config) DatabaseConfig() *database.Config {
	return &c.Database
}

func (c Config) ClassifierType() classifier.AlgType {
	return c.Classifier.Type
}

func (c Config) ClassifierConfig() *classifier.Config {
	return &c.Classifier
}

func (c Config) TrainerConfig() *trainer.Config {
	return &c.Trainer
}
