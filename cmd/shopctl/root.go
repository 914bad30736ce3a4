package main

import (
	"bufio"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/jrsteele09/go-auth-client/apiclient"
	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const noSessionAnnotation = "no-session"

// app holds what the commands share for one invocation
type app struct {
	cfgFile string

	in     io.Reader
	reader *bufio.Reader
	out    io.Writer

	cfg      config.Config
	provider *session.Provider
	closers  []func() error
}

func newApp(in io.Reader, out io.Writer) *app {
	return &app{in: in, reader: bufio.NewReader(in), out: out}
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			log.Warn().Err(err).Msg("Failed to close credential store")
		}
	}
	a.closers = nil
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Log in to the shop API and manage your account",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[noSessionAnnotation] != "" {
				return nil
			}
			return a.provision(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file path (default ~/.config/shopctl/config.yaml)")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newStatusCmd(a),
		newWhoamiCmd(a),
		newRefreshCmd(a),
		newRegisterCmd(a),
		newActivateCmd(a),
		newResendActivationCmd(a),
		newResetPasswordCmd(a),
		newResetPasswordConfirmCmd(a),
		newPasswdCmd(a),
		newProfileCmd(a),
		newVersionCmd(a),
	)
	return root
}

// provision loads the configuration, sets up logging and puts the session
// manager in the command's context
func (a *app) provision(cmd *cobra.Command) error {
	if a.cfg == nil {
		cfg, err := config.Load(a.cfgFile)
		if err != nil {
			return err
		}
		a.cfg = cfg
		setupLogging(cfg)
		a.provider = session.NewProvider(a.buildManager)
	}

	m, err := a.provider.Get()
	if err != nil {
		return err
	}
	cmd.SetContext(session.NewContext(cmd.Context(), m))
	return nil
}

func (a *app) buildManager() (*session.Manager, error) {
	store, closeStore, err := credentials.Open(config.StoreOptions(a.cfg))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeStore)

	client, err := apiclient.New(a.cfg.GetBaseURL(),
		apiclient.WithAuthScheme(a.cfg.GetAuthScheme()),
		apiclient.WithUserAgent(appName+"/"+version),
		apiclient.WithHTTPClient(&http.Client{Timeout: a.cfg.GetRequestTimeout()}),
	)
	if err != nil {
		return nil, err
	}

	return session.NewManager(client, store, session.WithRequestTimeout(a.cfg.GetRequestTimeout()))
}

func setupLogging(cfg config.EnvConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.GetLogLevel()))
	if err != nil {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}
