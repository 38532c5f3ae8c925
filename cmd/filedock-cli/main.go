package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagarc03/filedock/clientcli"
)

var (
	version = "dev"

	cfgFile    string
	profile    string
	endpoint   string
	timeout    time.Duration
	jsonOutput bool
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:     "filedock-cli",
	Version: version,
	Short:   "Client for the filedock file service",
	Long: `filedock-cli talks to a filedock server.

Uploads request a presigned URL, send the bytes straight to the object
store and confirm. Downloads stream from a presigned URL. Folders, listings
and file info go through the JSON API.

Connection settings come from, lowest precedence first: the profile in
~/.filedock/config.yaml, FILEDOCK_ENDPOINT and FILEDOCK_TIMEOUT, and flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.filedock/config.yaml, env: FILEDOCK_CONFIG)")
	flags.StringVarP(&profile, "profile", "p", "", "profile name (default: the default profile, env: FILEDOCK_PROFILE)")
	flags.StringVarP(&endpoint, "endpoint", "e", "", "server URL (default: http://localhost:5708, env: FILEDOCK_ENDPOINT)")
	flags.DurationVar(&timeout, "timeout", 0, "API call timeout (default: 30s, env: FILEDOCK_TIMEOUT)")
	flags.BoolVar(&jsonOutput, "json", false, "output as JSON")
	flags.BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(foldersCmd)
	rootCmd.AddCommand(configureCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		_ = getFormatter().FormatError(os.Stderr, err)
		os.Exit(1)
	}
}

// exitError carries an exit code for failures that were already reported,
// such as a batch where only some files failed.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// getConfigPath resolves the profile file: flag, then FILEDOCK_CONFIG, then the default.
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if p := clientcli.ConfigPathFromEnv(); p != "" {
		return p
	}
	return clientcli.DefaultConfigPath()
}

// buildConfig merges profile, env vars and flags (flags take precedence).
func buildConfig() (*clientcli.Config, error) {
	var configs []*clientcli.Config

	explicit := cfgFile != "" || clientcli.ConfigPathFromEnv() != ""
	profileName := profile
	if profileName == "" {
		profileName = clientcli.ProfileFromEnv()
	}

	if path := getConfigPath(); path != "" {
		file, err := clientcli.LoadConfigFile(path)
		switch {
		case err == nil:
			p, profileErr := file.GetProfile(profileName)
			if profileErr != nil && (profileName != "" || !errors.Is(profileErr, clientcli.ErrNoProfiles)) {
				return nil, profileErr
			}
			configs = append(configs, clientcli.ConfigFromProfile(p))
		case !errors.Is(err, os.ErrNotExist) || explicit || profileName != "":
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	configs = append(configs,
		clientcli.ConfigFromEnv(),
		&clientcli.Config{Endpoint: endpoint, Timeout: timeout},
	)

	return clientcli.MergeConfig(configs...), nil
}

// getFormatter returns the appropriate formatter based on flags.
func getFormatter() clientcli.Formatter {
	return clientcli.NewFormatter(jsonOutput, quiet)
}

// getClient creates and returns a configured client.
func getClient() (*clientcli.Client, error) {
	cfg, err := buildConfig()
	if err != nil {
		return nil, err
	}

	return clientcli.New(cfg)
}

// parseIDs validates every argument as a UUID.
func parseIDs(args []string) ([]string, error) {
	ids := make([]string, len(args))
	for i, arg := range args {
		id, err := clientcli.ParseID(arg)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}
