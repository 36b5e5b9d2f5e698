// Command apiclient authenticates against the configured environment and performs one API request.
//
//	apiclient -config apiclient.yaml -grant password GET /users/me
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/AmmannChristian/go-apiclient/apiclient"
	"github.com/AmmannChristian/go-apiclient/config"
	"github.com/AmmannChristian/go-apiclient/credential"
	"github.com/AmmannChristian/go-apiclient/oauth2client"
	"github.com/joho/godotenv"
)

type options struct {
	configPath string
	grant      string
	scope      string
	tokenFile  string
	method     string
	path       string
}

func main() {
	// .env is optional.
	_ = godotenv.Load()

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func parseFlags(args []string) (options, error) {
	fs := flag.NewFlagSet("apiclient", flag.ContinueOnError)

	var opts options
	fs.StringVar(&opts.configPath, "config", "apiclient.yaml", "YAML configuration file")
	fs.StringVar(&opts.grant, "grant", "password", "grant used when no stored credential exists: password or client_credentials")
	fs.StringVar(&opts.scope, "scope", "", "requested scope")
	fs.StringVar(&opts.tokenFile, "token-file", "", "file the credential is loaded from and saved to")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() != 2 {
		return options{}, errors.New("usage: apiclient [flags] METHOD PATH")
	}
	opts.method = strings.ToUpper(fs.Arg(0))
	opts.path = fs.Arg(1)
	return opts, nil
}

func run(ctx context.Context, opts options, out io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	var clientOpts []apiclient.Option
	if opts.tokenFile != "" {
		stored, err := loadCredential(opts.tokenFile)
		if err != nil {
			return err
		}
		if stored != nil {
			clientOpts = append(clientOpts, apiclient.WithCredential(stored))
		}
		clientOpts = append(clientOpts, apiclient.WithListener(oauth2client.ListenerFuncs{
			Refreshed: func(c *credential.Credential) {
				if err := saveCredential(opts.tokenFile, c); err != nil {
					log.Printf("apiclient: save credential: %v", err)
				}
			},
		}))
	}

	client, err := cfg.NewClient(clientOpts...)
	if err != nil {
		return err
	}
	defer client.Close()

	if !client.Credential().Live() {
		if err := authenticate(ctx, client, opts); err != nil {
			return err
		}
	}

	resp, err := client.Execute(ctx, opts.method, apiclient.NewRequest(opts.path))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	fmt.Fprintln(out, resp.Status)
	_, err = io.Copy(out, resp.Body)
	return err
}

func authenticate(ctx context.Context, client *apiclient.Client, opts options) error {
	switch opts.grant {
	case "password":
		username, password := os.Getenv("APICLIENT_USERNAME"), os.Getenv("APICLIENT_PASSWORD")
		if username == "" || password == "" {
			return errors.New("apiclient: APICLIENT_USERNAME and APICLIENT_PASSWORD are required for the password grant")
		}
		_, err := client.Login(ctx, username, password, opts.scope)
		return err
	case "client_credentials":
		_, err := client.ClientCredentials(ctx, opts.scope)
		return err
	default:
		return fmt.Errorf("apiclient: unsupported grant %q", opts.grant)
	}
}

func loadCredential(path string) (*credential.Credential, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("apiclient: read %s: %w", path, err)
	}

	var c credential.Credential
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("apiclient: decode %s: %w", path, err)
	}
	return &c, nil
}

func saveCredential(path string, c *credential.Credential) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

