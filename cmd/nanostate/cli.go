package main

import (
	"io"
	"os"
	"strings"

	"github.com/arthur-debert/nanostate/internal/logging"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Configuration keys
const (
	keyLogLevel       = "log.level"
	keyLogJSON        = "log.json"
	keyCacheAll       = "cache.all"
	keyResetThreshold = "collection.reset_threshold"
	keyOutputFormat   = "output.format"
	keyMetrics        = "output.metrics"
	keySave           = "output.save"
)

// CLI wires the cobra command tree to a viper instance
type CLI struct {
	rootCmd   *cobra.Command
	viperInst *viper.Viper
	out       io.Writer
	errOut    io.Writer
}

// NewCLI creates the command tree writing to out and errOut
func NewCLI(out, errOut io.Writer) *CLI {
	cli := &CLI{
		viperInst: viper.New(),
		out:       out,
		errOut:    errOut,
	}
	cli.setupViperConfig()
	cli.createRootCommand()
	cli.addCommands()
	return cli
}

// setupViperConfig configures defaults, environment variables and config
// file discovery
func (cli *CLI) setupViperConfig() {
	v := cli.viperInst
	v.SetDefault(keyLogLevel, "warn")
	v.SetDefault(keyLogJSON, false)
	v.SetDefault(keyCacheAll, false)
	v.SetDefault(keyResetThreshold, 1.0)
	v.SetDefault(keyOutputFormat, "text")
	v.SetDefault(keyMetrics, false)

	// NANOSTATE_COLLECTION_RESET_THRESHOLD -> collection.reset_threshold
	v.SetEnvPrefix("NANOSTATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile := os.Getenv("NANOSTATE_CONFIG"); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("nanostate")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.nanostate")
	}
}

func (cli *CLI) createRootCommand() {
	cli.rootCmd = &cobra.Command{
		Use:   "nanostate",
		Short: "nanostate CLI - replay collection scenarios and check schemas",
		Long: `nanostate runs scripted operations against observable collections
and prints the change events they raise.

Configuration Sources (in order of precedence):
1. Command line flags
2. Environment variables (NANOSTATE_*)
3. Configuration file (--config, NANOSTATE_CONFIG or ./nanostate.yaml)
4. Defaults

Examples:
  nanostate replay scenario.yaml
  nanostate replay --format json --reset-threshold 0.5 scenario.yaml
  NANOSTATE_LOG_LEVEL=debug nanostate replay scenario.yaml
  nanostate schema validate person.yaml`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.initialize(cmd)
		},
	}
	cli.rootCmd.SetOut(cli.out)
	cli.rootCmd.SetErr(cli.errOut)

	flags := cli.rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default ./nanostate.yaml)")
	flags.String("log-level", "warn", "log level (debug|info|warn|error)")
	flags.Bool("log-json", false, "log as JSON")

	_ = cli.viperInst.BindPFlag(keyLogLevel, flags.Lookup("log-level"))
	_ = cli.viperInst.BindPFlag(keyLogJSON, flags.Lookup("log-json"))
}

func (cli *CLI) addCommands() {
	cli.rootCmd.AddCommand(cli.newReplayCommand())
	cli.rootCmd.AddCommand(cli.newSchemaCommand())
	cli.rootCmd.AddCommand(cli.newVersionCommand())
}

// initialize reads the config file and sets up logging before any command
func (cli *CLI) initialize(cmd *cobra.Command) error {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cli.viperInst.SetConfigFile(path)
	}
	if err := cli.viperInst.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return errors.Wrap(err, "failed to read config")
		}
	}

	return logging.Initialize(logging.Options{
		Level:  cli.viperInst.GetString(keyLogLevel),
		JSON:   cli.viperInst.GetBool(keyLogJSON),
		Output: cli.errOut,
	})
}

// Execute runs the command tree with args
func (cli *CLI) Execute(args []string) error {
	cli.rootCmd.SetArgs(args)
	defer logging.Sync()
	return cli.rootCmd.Execute()
}
