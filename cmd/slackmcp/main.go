// Copyright (c) 2026 Rustam Gilyazov and Contributors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Command slackmcp starts an MCP server that exposes a Slack workspace to
// AI agents: reading and searching conversations, listing the directory,
// and (when enabled by policy) posting messages and managing channels.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rusq/osenv/v2"

	"github.com/rusq/slackmcp/internal/mcp"
	"github.com/rusq/slackmcp/internal/provider"
)

const (
	envBotToken  = "SLACK_MCP_BOT_TOKEN"
	envUserToken = "SLACK_MCP_USER_TOKEN"

	envUsersCache    = "SLACK_MCP_USERS_CACHE"
	envChannelsCache = "SLACK_MCP_CHANNELS_CACHE"

	envAddMessageTool   = "SLACK_MCP_ADD_MESSAGE_TOOL"
	envAddMessageUnfurl = "SLACK_MCP_ADD_MESSAGE_UNFURLING"
	envAddMessageMark   = "SLACK_MCP_ADD_MESSAGE_MARK"
	envChannelTools     = "SLACK_MCP_CHANNEL_TOOLS"
)

var build = "dev"

// secrets defines the names of the supported secret files that we load our
// secrets from.  Inexperienced windows users might have bad experience trying
// to create .env file with the notepad as it will battle for having the
// "txt" extension.  Let it have it.
var secrets = []string{".env", ".env.txt", "secrets.txt"}

// params is the command line parameters.
type params struct {
	botToken  string
	userToken string

	usersCache    string
	channelsCache string

	transport  string
	listenAddr string

	cfg mcp.Config

	printVersion bool
	verbose      bool
}

func main() {
	loadSecrets(secrets)

	p, err := parseCmdLine(os.Args[1:])
	if err != nil {
		slog.Error("invalid parameters", "error", err)
		os.Exit(2)
	}
	if p.printVersion {
		fmt.Println(build)
		return
	}

	// Logs always go to stderr: with the stdio transport, stdout carries
	// the protocol.
	lvl := slog.LevelInfo
	if p.verbose {
		lvl = slog.LevelDebug
	}
	lg := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(lg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, p, lg); err != nil {
		lg.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, p params, lg *slog.Logger) error {
	prov, err := provider.New(ctx, provider.Config{
		PrimaryToken:      p.botToken,
		ElevatedToken:     p.userToken,
		UsersCachePath:    p.usersCache,
		ChannelsCachePath: p.channelsCache,
		Logger:            lg,
	})
	if err != nil {
		return err
	}

	// Populate the directory before serving, so the first tool call does
	// not pay for the full fetch.
	if err := prov.Directory().Refresh(ctx, false); err != nil {
		return fmt.Errorf("initial directory load: %w", err)
	}

	srv := mcp.New(prov, p.cfg, lg)
	switch mcp.Transport(p.transport) {
	case mcp.TransportStdio:
		return srv.ServeStdio(ctx)
	case mcp.TransportHTTP:
		return srv.ServeHTTP(ctx, p.listenAddr)
	default:
		return fmt.Errorf("unknown transport %q, must be %q or %q", p.transport, mcp.TransportStdio, mcp.TransportHTTP)
	}
}

// loadSecrets load secrets from the files in secrets slice.
func loadSecrets(files []string) {
	for _, f := range files {
		godotenv.Load(f)
	}
}

// parseCmdLine parses the command line arguments.
func parseCmdLine(args []string) (params, error) {
	fs := flag.NewFlagSet("", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(
			flag.CommandLine.Output(),
			"Slackmcp, %s\n"+
				"Slackmcp serves a Slack workspace over the Model Context Protocol.\n\n"+
				"Usage:  %s [flags]\n\n",
			build, filepath.Base(os.Args[0]))
		fs.PrintDefaults()
	}

	var p params
	fs.StringVar(&p.botToken, "bot-token", osenv.Secret(envBotToken, ""), "bot `token` (xoxb-...), (environment: "+envBotToken+")")
	fs.StringVar(&p.userToken, "user-token", osenv.Secret(envUserToken, ""), "user `token` (xoxp-...), (environment: "+envUserToken+")")

	fs.StringVar(&p.usersCache, "users-cache", osenv.Value(envUsersCache, defaultCachePath("users.bin")), "users cache `file`, empty disables persistence (environment: "+envUsersCache+")")
	fs.StringVar(&p.channelsCache, "channels-cache", osenv.Value(envChannelsCache, defaultCachePath("channels.bin")), "channels cache `file`, empty disables persistence (environment: "+envChannelsCache+")")

	fs.StringVar(&p.transport, "transport", "stdio", "MCP transport: \"stdio\" or \"http\"")
	fs.StringVar(&p.listenAddr, "listen", "127.0.0.1:13080", "address to listen on when -transport=http")

	fs.StringVar(&p.cfg.PostPolicy, "post-policy", osenv.Value(envAddMessageTool, ""), "message posting `policy`: empty disables posting, \"true\" allows all channels,\na comma-separated list of channel IDs allows only those, and a \"!\"-prefixed\nlist allows all but those (environment: "+envAddMessageTool+")")
	fs.StringVar(&p.cfg.UnfurlPolicy, "unfurl", osenv.Value(envAddMessageUnfurl, ""), "link unfurling `policy`: \"yes\", \"no\", or a comma-separated domain allowlist\n(environment: "+envAddMessageUnfurl+")")
	fs.BoolVar(&p.cfg.MarkAsRead, "mark-as-read", osenv.Value(envAddMessageMark, false), "mark the conversation read after posting (environment: "+envAddMessageMark+")")
	fs.BoolVar(&p.cfg.ChannelTools, "channel-tools", osenv.Value(envChannelTools, false), "enable the channel management tools (environment: "+envChannelTools+")")

	fs.BoolVar(&p.printVersion, "V", false, "print version and exit")
	fs.BoolVar(&p.verbose, "v", osenv.Value("DEBUG", false), "verbose messages")

	os.Unsetenv(envBotToken)
	os.Unsetenv(envUserToken)

	if err := fs.Parse(args); err != nil {
		return p, err
	}
	return p, nil
}

// defaultCachePath places the cache file in the user cache directory, or
// the current directory if there is none.
func defaultCachePath(filename string) string {
	base, err := os.UserCacheDir()
	if err != nil {
		return filename
	}
	return filepath.Join(base, "slackmcp", filename)
}
