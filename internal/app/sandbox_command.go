package app

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ethkit/ethkit/internal/cache"
	"github.com/ethkit/ethkit/internal/chain"
	"github.com/ethkit/ethkit/internal/session"
)

func (s *runtimeState) newSandboxCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sandbox",
		Short: "Start an interactive session against the configured network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.runSession(cmd)
		},
	}
}

// runSession connects to the configured chain (or spins up the sandbox
// backend) and hands control to the interactive loop.
func (s *runtimeState) runSession(cmd *cobra.Command) error {
	var (
		provider *chain.Provider
		accounts []chain.Account
		err      error
	)
	if s.settings.Sandbox {
		provider, accounts, err = chain.NewSandbox()
	} else {
		store := s.openCache()
		if store != nil {
			defer func() { _ = store.Close() }()
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), s.settings.Timeout)
		defer cancel()
		provider, err = chain.Dial(ctx, s.settings.RPCURL, store)
	}
	if err != nil {
		return err
	}
	defer func() { _ = provider.Close() }()

	sess := session.New(provider, accounts, session.Options{
		Input:   s.runner.sessionInput,
		Stdout:  cmd.OutOrStdout(),
		Stderr:  cmd.ErrOrStderr(),
		Timeout: s.settings.Timeout,
	})
	return sess.Run()
}

// openCache returns the endpoint cache, or nil when caching is disabled or
// the store cannot be opened. A broken cache never blocks a session.
func (s *runtimeState) openCache() *cache.Store {
	if !s.settings.CacheEnabled {
		return nil
	}
	store, err := cache.Open(s.settings.CachePath, s.settings.CacheLockPath)
	if err != nil {
		return nil
	}
	return store
}
