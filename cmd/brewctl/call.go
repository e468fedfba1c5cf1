package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/brewsync/internal/authclient"
)

var (
	callBaseURL string
	callData    string
	callHeaders []string
	callQuery   []string
	callSession string
)

var callCmd = &cobra.Command{
	Use:   "call <method> <path>",
	Short: "Call an authenticated backend, refreshing the session on 401",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		method := strings.ToUpper(args[0])

		base := callBaseURL
		if base == "" {
			base = cfg.AuthBackendURL
		}
		client, err := authclient.New(authclient.Config{
			BaseURL:       base,
			ClientVersion: cfg.ClientVersion,
			VersionHeader: cfg.ClientVersionHeader,
			Log:           log,
		})
		if err != nil {
			return err
		}
		defer client.Close()

		session := callSession
		if session == "" {
			session = os.Getenv("BREWSYNC_SESSION")
		}
		if session != "" {
			u, err := url.Parse(base)
			if err != nil {
				return fmt.Errorf("parse base url: %w", err)
			}
			client.Jar().SetCookies(u, []*http.Cookie{{Name: "auth_token", Value: session, Path: "/"}})
		}

		var opts []authclient.RequestOption
		if callData != "" {
			if !json.Valid([]byte(callData)) {
				return fmt.Errorf("--data is not valid JSON")
			}
			opts = append(opts, authclient.WithBody("application/json", []byte(callData)))
		}
		for _, h := range callHeaders {
			k, v, ok := strings.Cut(h, ":")
			if !ok {
				return fmt.Errorf("header %q is not key:value", h)
			}
			opts = append(opts, authclient.WithHeader(strings.TrimSpace(k), strings.TrimSpace(v)))
		}
		for _, q := range callQuery {
			k, v, _ := strings.Cut(q, "=")
			opts = append(opts, authclient.WithQuery(k, v))
		}

		resp, err := client.Do(cmd.Context(), method, args[1], opts...)
		if err != nil {
			return err
		}

		var body any
		if err := resp.JSON(&body); err != nil {
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(resp.Body))
			return err
		}
		return printOutput(cmd, body)
	},
}

func init() {
	callCmd.Flags().StringVar(&callBaseURL, "base-url", "", "backend base URL (default AUTH_BACKEND_URL)")
	callCmd.Flags().StringVarP(&callData, "data", "d", "", "JSON request body")
	callCmd.Flags().StringArrayVarP(&callHeaders, "header", "H", nil, "extra header as key:value (repeatable)")
	callCmd.Flags().StringArrayVarP(&callQuery, "query", "q", nil, "query parameter as key=value (repeatable)")
	callCmd.Flags().StringVar(&callSession, "session", "", "initial auth_token cookie (default BREWSYNC_SESSION)")
}
