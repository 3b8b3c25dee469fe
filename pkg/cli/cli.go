package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/peterbourgon/ff/ffyaml"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/slauger/suno-cli/pkg/cmd/batch"
	"github.com/slauger/suno-cli/pkg/cmd/convert"
	"github.com/slauger/suno-cli/pkg/cmd/download"
	"github.com/slauger/suno-cli/pkg/cmd/generate"
	"github.com/slauger/suno-cli/pkg/cmd/initconfig"
	"github.com/slauger/suno-cli/pkg/cmd/serve"
	"github.com/slauger/suno-cli/pkg/cmd/status"
	"github.com/slauger/suno-cli/pkg/cmd/tasks"
	"github.com/slauger/suno-cli/pkg/cmd/upload"
)

func New(version, commit, date string) *ffcli.Command {
	fs := flag.NewFlagSet("suno-cli", flag.ExitOnError)

	return &ffcli.Command{
		ShortUsage: "suno-cli [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			newVersionCommand(version, commit, date),
			newGenerateCommand(),
			newBatchCommand(),
			newStatusCommand(),
			newDownloadCommand(),
			newTasksCommand(),
			newServeCommand(),
			newConvertCommand(),
			newUploadCommand(),
			newInitConfigCommand(),
		},
	}
}

func newVersionCommand(version, commit, date string) *ffcli.Command {
	return &ffcli.Command{
		Name:       "version",
		ShortUsage: "suno-cli version",
		ShortHelp:  "print version",
		Exec: func(ctx context.Context, args []string) error {
			v := version
			if v == "" {
				if buildInfo, ok := debug.ReadBuildInfo(); ok {
					v = buildInfo.Main.Version
				}
			}
			if v == "" {
				v = "dev"
			}
			versionFields := []string{v}
			if commit != "" {
				versionFields = append(versionFields, commit)
			}
			if date != "" {
				versionFields = append(versionFields, date)
			}
			fmt.Println(strings.Join(versionFields, " "))
			return nil
		},
	}
}

func newGenerateCommand() *ffcli.Command {
	cmd := "generate"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &generate.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.Proxy, "proxy", "", "proxy to use")
	fs.DurationVar(&cfg.Wait, "wait", 1*time.Second, "minimum wait between api requests")
	fs.StringVar(&cfg.APIKey, "api-key", "", "suno api key")
	fs.StringVar(&cfg.APIBase, "api-base", "", "suno api base url (optional)")
	fs.StringVar(&cfg.CallbackURL, "callback-url", "", "callback url sent with generation requests")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")
	fs.StringVar(&cfg.FSType, "fs-type", "", "fs type (local, s3, telegram)")
	fs.StringVar(&cfg.FSConn, "fs-conn", "", "path for local, key:secret@bucket.region for s3, token@chat for telegram")

	fs.StringVar(&cfg.Output, "output", "", "output folder")
	fs.StringVar(&cfg.FilenameFormat, "filename-format", "", "filename format, placeholders {title} {artist} {track} {variant}")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", 0, "seconds between status polls (0 uses the default)")
	fs.DurationVar(&cfg.MaxWait, "max-wait", 0, "maximum wait for a task to finish (0 uses the default)")

	fs.StringVar(&cfg.Title, "title", "", "song title")
	fs.StringVar(&cfg.Prompt, "prompt", "", "prompt or lyrics")
	fs.StringVar(&cfg.Style, "style", "", "music style")
	fs.StringVar(&cfg.Model, "model", "", "model version")
	fs.StringVar(&cfg.Gender, "gender", "", "vocal gender (male, female)")
	fs.BoolVar(&cfg.Instrumental, "instrumental", false, "instrumental song")
	fs.IntVar(&cfg.Duration, "duration", 0, "requested duration in seconds (0 lets the service decide)")

	fs.StringVar(&cfg.Artist, "artist", "", "artist tag to write")
	fs.StringVar(&cfg.Album, "album", "", "album tag to write")
	fs.IntVar(&cfg.Track, "track", 0, "track number tag to write")
	fs.StringVar(&cfg.Cover, "cover", "", "cover image file or url to embed")
	fs.BoolVar(&cfg.GenerateCover, "generate-cover", false, "request a generated cover image")
	fs.BoolVar(&cfg.SkipTags, "no-tags", false, "skip id3 tagging")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("suno-cli %s [flags]", cmd),
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ffyaml.Parser),
			ff.WithEnvVarPrefix("SUNO_CLI"),
		},
		ShortHelp: fmt.Sprintf("suno-cli %s action", cmd),
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			return generate.Run(ctx, cfg)
		},
	}
}

func newBatchCommand() *ffcli.Command {
	cmd := "batch"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &batch.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.Proxy, "proxy", "", "proxy to use")
	fs.DurationVar(&cfg.Wait, "wait", 1*time.Second, "minimum wait between api requests")
	fs.StringVar(&cfg.APIKey, "api-key", "", "suno api key")
	fs.StringVar(&cfg.APIBase, "api-base", "", "suno api base url (optional)")
	fs.StringVar(&cfg.CallbackURL, "callback-url", "", "callback url sent with generation requests")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")
	fs.StringVar(&cfg.FSType, "fs-type", "", "fs type (local, s3, telegram)")
	fs.StringVar(&cfg.FSConn, "fs-conn", "", "path for local, key:secret@bucket.region for s3, token@chat for telegram")

	fs.StringVar(&cfg.File, "file", "", "batch file (json or yaml) or url")
	fs.StringVar(&cfg.Output, "output", "", "output base folder (overrides the batch file)")
	fs.StringVar(&cfg.FilenameFormat, "filename-format", "", "filename format, placeholders {title} {artist} {track} {variant}")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", 0, "seconds between status polls (0 uses the default)")
	fs.DurationVar(&cfg.MaxWait, "max-wait", 0, "maximum wait for a task to finish (0 uses the default)")

	fs.BoolVar(&cfg.Parallel, "parallel", false, "process all entries concurrently")
	fs.DurationVar(&cfg.Delay, "delay", 0, "wait between entries in sequential mode")

	fs.StringVar(&cfg.Model, "model", "", "default model version")
	fs.StringVar(&cfg.Gender, "gender", "", "default vocal gender (male, female)")
	fs.StringVar(&cfg.Artist, "artist", "", "default artist tag")
	fs.StringVar(&cfg.Album, "album", "", "default album tag")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("suno-cli %s [flags]", cmd),
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ffyaml.Parser),
			ff.WithEnvVarPrefix("SUNO_CLI"),
		},
		ShortHelp: fmt.Sprintf("suno-cli %s action", cmd),
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			return batch.Run(ctx, cfg)
		},
	}
}

func newStatusCommand() *ffcli.Command {
	cmd := "status"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &status.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.Proxy, "proxy", "", "proxy to use")
	fs.DurationVar(&cfg.Wait, "wait", 1*time.Second, "minimum wait between api requests")
	fs.StringVar(&cfg.APIKey, "api-key", "", "suno api key")
	fs.StringVar(&cfg.APIBase, "api-base", "", "suno api base url (optional)")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")

	fs.StringVar(&cfg.TaskID, "task", "", "task id to query")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("suno-cli %s [flags]", cmd),
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ffyaml.Parser),
			ff.WithEnvVarPrefix("SUNO_CLI"),
		},
		ShortHelp: fmt.Sprintf("suno-cli %s action", cmd),
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			return status.Run(ctx, cfg)
		},
	}
}

func newDownloadCommand() *ffcli.Command {
	cmd := "download"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &download.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.Proxy, "proxy", "", "proxy to use")
	fs.DurationVar(&cfg.Wait, "wait", 1*time.Second, "minimum wait between api requests")
	fs.StringVar(&cfg.APIKey, "api-key", "", "suno api key")
	fs.StringVar(&cfg.APIBase, "api-base", "", "suno api base url (optional)")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")
	fs.StringVar(&cfg.FSType, "fs-type", "", "fs type (local, s3, telegram)")
	fs.StringVar(&cfg.FSConn, "fs-conn", "", "path for local, key:secret@bucket.region for s3, token@chat for telegram")

	fs.StringVar(&cfg.TaskID, "task", "", "task id to download")
	fs.StringVar(&cfg.Output, "output", "", "output folder")
	fs.StringVar(&cfg.FilenameFormat, "filename-format", "", "filename format, placeholders {title} {artist} {track} {variant}")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", 0, "seconds between status polls (0 uses the default)")
	fs.DurationVar(&cfg.MaxWait, "max-wait", 0, "maximum wait for a task to finish (0 uses the default)")

	fs.StringVar(&cfg.Artist, "artist", "", "artist tag to write")
	fs.StringVar(&cfg.Album, "album", "", "album tag to write")
	fs.IntVar(&cfg.Track, "track", 0, "track number tag to write")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("suno-cli %s [flags]", cmd),
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ffyaml.Parser),
			ff.WithEnvVarPrefix("SUNO_CLI"),
		},
		ShortHelp: fmt.Sprintf("suno-cli %s action", cmd),
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			return download.Run(ctx, cfg)
		},
	}
}

func newTasksCommand() *ffcli.Command {
	cmd := "tasks"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &tasks.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")

	fs.StringVar(&cfg.Status, "status", "", "filter by status")
	fs.StringVar(&cfg.Batch, "batch", "", "filter by batch id")
	fs.IntVar(&cfg.Page, "page", 1, "page number")
	fs.IntVar(&cfg.Size, "size", 20, "page size")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("suno-cli %s [flags]", cmd),
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ffyaml.Parser),
			ff.WithEnvVarPrefix("SUNO_CLI"),
		},
		ShortHelp: fmt.Sprintf("suno-cli %s action", cmd),
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			return tasks.Run(ctx, cfg)
		},
	}
}

func newServeCommand() *ffcli.Command {
	cmd := "serve"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &serve.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")
	fs.StringVar(&cfg.Addr, "addr", ":8080", "address to listen on")
	fsMapVar(fs, &cfg.Credentials, "creds", nil, "basic auth credentials (comma separated) Example: user1:pass1,user2:pass2")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("suno-cli %s [flags]", cmd),
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ffyaml.Parser),
			ff.WithEnvVarPrefix("SUNO_CLI"),
		},
		ShortHelp: fmt.Sprintf("suno-cli %s action", cmd),
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			return serve.Run(ctx, cfg)
		},
	}
}

func newConvertCommand() *ffcli.Command {
	cmd := "convert"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &convert.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.Input, "input", "", "input mp3 file or folder")
	fs.StringVar(&cfg.Output, "output", "", "output mp4 file or folder (optional)")
	fs.StringVar(&cfg.Cover, "cover", "", "cover image to use instead of the embedded one")
	fs.StringVar(&cfg.Resolution, "resolution", "", "video resolution (default 1920x1080)")
	fs.IntVar(&cfg.Framerate, "framerate", 0, "video framerate (default 1)")
	fs.BoolVar(&cfg.Overwrite, "overwrite", false, "overwrite existing output files")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("suno-cli %s [flags]", cmd),
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ffyaml.Parser),
			ff.WithEnvVarPrefix("SUNO_CLI"),
		},
		ShortHelp: fmt.Sprintf("suno-cli %s action", cmd),
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			return convert.Run(ctx, cfg)
		},
	}
}

func newUploadCommand() *ffcli.Command {
	cmd := "upload"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &upload.Config{}
	var tagList string

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.ClientSecrets, "client-secrets", "", "oauth client secrets file")
	fs.StringVar(&cfg.TokenFile, "token-file", "", "oauth token cache file")
	fs.BoolVar(&cfg.Auth, "auth", false, "run the oauth flow and exit")

	fs.StringVar(&cfg.File, "file", "", "video file to upload")
	fs.StringVar(&cfg.Title, "title", "", "video title (defaults to the file name)")
	fs.StringVar(&cfg.Description, "description", "", "video description")
	fs.StringVar(&tagList, "tags", "", "comma separated video tags")
	fs.StringVar(&cfg.Category, "category", "", "video category id (default music)")
	fs.StringVar(&cfg.Privacy, "privacy", "private", "privacy status (public, private, unlisted)")
	fs.BoolVar(&cfg.NotifySubscribers, "notify-subscribers", false, "notify subscribers on publish")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("suno-cli %s [flags]", cmd),
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ffyaml.Parser),
			ff.WithEnvVarPrefix("SUNO_CLI"),
		},
		ShortHelp: fmt.Sprintf("suno-cli %s action", cmd),
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			if tagList != "" {
				cfg.Tags = strings.Split(tagList, ",")
			}
			return upload.Run(ctx, cfg)
		},
	}
}

func newInitConfigCommand() *ffcli.Command {
	cmd := "init-config"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)

	cfg := &initconfig.Config{}

	fs.StringVar(&cfg.Path, "path", "", "where to create the config file (default ~/.suno-cli/config.yaml)")
	fs.BoolVar(&cfg.Overwrite, "overwrite", false, "replace the file if it already exists")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("suno-cli %s [flags]", cmd),
		ShortHelp:  "create a starter config file",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return initconfig.Run(ctx, cfg)
		},
	}
}

type mapValue struct {
	v *map[string]string
}

func (m *mapValue) String() string {
	if m.v == nil {
		return ""
	}
	return fmt.Sprintf("%v", map[string]string(*m.v))
}

func (m *mapValue) Set(value string) error {
	if m.v == nil {
		return errors.New("nil map reference")
	}
	pairs := strings.Split(value, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid map entry: %s", pair)
		}
		(*m.v)[parts[0]] = parts[1]
	}
	return nil
}

func fsMapVar(fs *flag.FlagSet, p *map[string]string, name string, value map[string]string, usage string) {
	if value == nil {
		value = make(map[string]string)
	}
	*p = value
	fs.Var(&mapValue{p}, name, usage)
}
