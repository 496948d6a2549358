package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hupe1980/seglog"
	"github.com/hupe1980/seglog/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "SEGLOG"

// config is resolved from flags, SEGLOG_* environment variables and an
// optional config file, in that order of precedence.
type config struct {
	Backend     string
	Root        string
	ID          string
	Bucket      string
	Prefix      string
	Endpoint    string
	AccessKey   string
	SecretKey   string
	UseSSL      bool
	Region      string
	DDBTable    string
	Compression string
	Verbose     bool
}

func loadConfig(v *viper.Viper) (config, error) {
	cfg := config{
		Backend:     v.GetString("backend"),
		Root:        v.GetString("root"),
		ID:          v.GetString("id"),
		Bucket:      v.GetString("bucket"),
		Prefix:      v.GetString("prefix"),
		Endpoint:    v.GetString("endpoint"),
		AccessKey:   v.GetString("access-key"),
		SecretKey:   v.GetString("secret-key"),
		UseSSL:      v.GetBool("use-ssl"),
		Region:      v.GetString("region"),
		DDBTable:    v.GetString("ddb-table"),
		Compression: v.GetString("compression"),
		Verbose:     v.GetBool("verbose"),
	}
	if cfg.ID == "" {
		return cfg, fmt.Errorf("log id is required (--id or %s_ID)", envPrefix)
	}
	return cfg, nil
}

// app carries the state shared by all subcommands.
type app struct {
	v *viper.Viper
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	var cfgFile string

	root := &cobra.Command{
		Use:           "seglog",
		Short:         "Inspect segmented append-only logs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cfgFile != "" {
				a.v.SetConfigFile(cfgFile)
				if err := a.v.ReadInConfig(); err != nil {
					return fmt.Errorf("read config %s: %w", cfgFile, err)
				}
			}
			return a.v.BindPFlags(cmd.Flags())
		},
	}

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	f := root.PersistentFlags()
	f.StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	f.String("backend", "local", "blob store backend: local, minio or s3")
	f.String("root", ".", "root directory of the local backend")
	f.String("id", "", "log identity")
	f.String("bucket", "", "bucket of the minio and s3 backends")
	f.String("prefix", "", "key prefix inside the bucket")
	f.String("endpoint", "", "minio endpoint or s3 endpoint override")
	f.String("access-key", "", "minio access key")
	f.String("secret-key", "", "minio secret key")
	f.Bool("use-ssl", true, "use TLS for minio")
	f.String("region", "", "aws region of the s3 backend")
	f.String("ddb-table", "", "dynamodb table committing checkpoints of the s3 backend")
	f.String("compression", "none", "section compression used when writing: none, lz4 or zstd")
	f.BoolP("verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		a.sectionsCmd(),
		a.dumpCmd(),
		a.checkpointCmd(),
		a.verifyCmd(),
	)
	return root
}

// openStorage resolves the configuration and returns the storage of the
// configured log identity.
func (a *app) openStorage(ctx context.Context) (*storage.BlobStorage, config, error) {
	cfg, err := loadConfig(a.v)
	if err != nil {
		return nil, cfg, err
	}
	comp, err := storage.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, cfg, err
	}
	store, err := openBlobStore(ctx, cfg)
	if err != nil {
		return nil, cfg, err
	}
	st := storage.New(store, cfg.ID, func(o *storage.Options) {
		o.Compression = comp
	})
	return st, cfg, nil
}

// openLog opens the configured log without modifying storage.
func (a *app) openLog(ctx context.Context) (*seglog.Log, *storage.BlobStorage, error) {
	st, cfg, err := a.openStorage(ctx)
	if err != nil {
		return nil, nil, err
	}
	logger := seglog.NoopLogger()
	if cfg.Verbose {
		logger = seglog.NewTextLogger(slog.LevelDebug)
	}
	l, err := seglog.Open(ctx, st, seglog.ReadOnly(), seglog.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return l, st, nil
}
