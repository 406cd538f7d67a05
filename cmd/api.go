package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/desertthunder/acegen/internal/services"
	"github.com/desertthunder/acegen/internal/shared"
	"github.com/urfave/cli/v3"
)

// apiService returns a client for the configured engine's HTTP API.
func (r *Runner) apiService(config *shared.Config) *services.APIService {
	return services.NewAPIService("http://"+config.Engine.Addr, r.httpClient)
}

// APIGet makes a direct GET request to the engine
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	useJSON := cmd.Bool("json")

	if path == "" {
		return fmt.Errorf("%w: path argument is required", shared.ErrMissingArgument)
	}

	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}
	api := r.apiService(config)

	if cmd.Bool("curl") {
		req, err := api.BuildRequest(ctx, http.MethodGet, path)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrEngineRequest, err)
		}
		return r.writePlain("%s\n", shared.FormatCurl(req, nil))
	}

	r.logger.Info("GET request", "path", path)

	resp, err := api.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrEngineRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrEngineRequest, resp.StatusCode, string(resp.Body))
	}

	if useJSON {
		if resp.IsJSON {
			return r.writeJSON(resp.JSONData, false)
		}
		r.output.Write(resp.Body)
		r.output.Write([]byte("\n"))
		return nil
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, true)
	}

	r.output.Write(resp.Body)
	r.output.Write([]byte("\n"))
	return nil
}

// APIPost makes a direct POST request to the engine
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	data := cmd.String("data")

	if path == "" {
		return fmt.Errorf("%w: path argument is required", shared.ErrMissingArgument)
	}
	if data == "" {
		return fmt.Errorf("%w: --data flag is required", shared.ErrMissingArgument)
	}

	var jsonTest any
	if err := json.Unmarshal([]byte(data), &jsonTest); err != nil {
		return fmt.Errorf("%w: data is not valid JSON: %v", shared.ErrInvalidInput, err)
	}

	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}
	api := r.apiService(config)

	if cmd.Bool("curl") {
		req, err := api.BuildRequest(ctx, http.MethodPost, path)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrEngineRequest, err)
		}
		req.Header.Set("Content-Type", "application/json")
		return r.writePlain("%s\n", shared.FormatCurl(req, []byte(data)))
	}

	r.logger.Info("POST request", "path", path)

	resp, err := api.Post(ctx, path, []byte(data))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrEngineRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrEngineRequest, resp.StatusCode, string(resp.Body))
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, true)
	}

	r.output.Write(resp.Body)
	r.output.Write([]byte("\n"))
	return nil
}

func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct API calls to the Ace Stream engine",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET to the engine, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to the config file",
						Value:   "acegen.toml",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
						Value: true,
					},
					&cli.BoolFlag{
						Name:  "curl",
						Usage: "Print the request as a curl command instead of sending it",
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to the config file",
						Value:   "acegen.toml",
					},
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "curl",
						Usage: "Print the request as a curl command instead of sending it",
					},
				},
				Action: r.APIPost,
			},
		},
	}
}
