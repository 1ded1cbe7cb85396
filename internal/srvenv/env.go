package srvenv

import (
	"context"

	"knc/internal/classifier"
	"knc/internal/database"
	"knc/internal/trainer"
)

type Option func(*SrvEnv) *SrvEnv

func New(opts ...Option) *SrvEnv {
	env := &SrvEnv{}
	for _, f := range opts {
		env = f(env)
	}

	return env
}

type SrvEnv struct {
	database   *database.DB
	classifier classifier.ProvideFn
	trainer    trainer.ProvideFn
}

func (s *SrvEnv) ProvideClassifier() classifier.ProvideFn {
	return s.classifier
}

func (s *SrvEnv) ProvideTrainer() trainer.ProvideFn {
	return s.trainer
}

func (s *SrvEnv) Database() *database.DB {
	return s.database
}

func WithClassifier(fn classifier.ProvideFn) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.classifier = fn
		return s
	}
}

func WithTrainer(fn trainer.ProvideFn) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.trainer = fn
		return s
	}
}

func WithDatabase(db *database.DB) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.database = db
		return s
	}
}

func (s *SrvEnv) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}

	if s.database != nil {
		return s.database.Close(ctx)
	}
	return nil
}
