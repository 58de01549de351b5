package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ryzenmon/ryzenmon/pkg/agent"
	"github.com/spf13/cobra"
)

func agentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Remote telemetry agent",
		Long:  "Serve telemetry to remote clients, or query a remote agent",
	}

	cmd.AddCommand(agentServeCmd())
	cmd.AddCommand(agentConnectCmd())

	return cmd
}

func agentServeCmd() *cobra.Command {
	var (
		port     int
		certFile string
		keyFile  string
		caFile   string
		logFile  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the telemetry agent server",
		Long: `Start the telemetry agent server with mTLS authentication.

The agent exposes the following endpoints:
  /sysinfo    - Processor identity, topology and host facts
  /telemetry  - One live telemetry reading
  /health     - Health check endpoint

Examples:
  # Start with default settings (requires cert files)
  ryzenmon agent serve --cert server.pem --key server.key --ca ca.pem

  # Start on custom port with logging
  ryzenmon agent serve --port 2234 --cert server.pem --key server.key --ca ca.pem --log agent.log

  # Using environment variables
  export RYZENMON_AGENT_PORT=2234
  export RYZENMON_AGENT_CERT=server.pem
  export RYZENMON_AGENT_KEY=server.key
  export RYZENMON_AGENT_CA=ca.pem
  ryzenmon agent serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Check environment variables for defaults
			if certFile == "" {
				certFile = os.Getenv("RYZENMON_AGENT_CERT")
			}
			if keyFile == "" {
				keyFile = os.Getenv("RYZENMON_AGENT_KEY")
			}
			if caFile == "" {
				caFile = os.Getenv("RYZENMON_AGENT_CA")
			}
			if envPort := os.Getenv("RYZENMON_AGENT_PORT"); envPort != "" && !cmd.Flags().Changed("port") {
				_, _ = fmt.Sscanf(envPort, "%d", &port)
			}

			mon, err := openMonitor()
			if err != nil {
				return fmt.Errorf("failed to open monitor: %w", err)
			}
			defer func() { _ = mon.Close() }()

			// Create config
			config := agent.Config{
				Port:     port,
				CertFile: certFile,
				KeyFile:  keyFile,
				CAFile:   caFile,
				LogFile:  logFile,
			}

			// Create server
			server, err := agent.NewServer(config, mon)
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}

			// Setup signal handling
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			// Start server in goroutine
			errChan := make(chan error, 1)
			go func() {
				errChan <- server.Start()
			}()

			fmt.Printf("Agent server started on port %d with mTLS\n", port)
			fmt.Printf("Certificate: %s\n", certFile)
			fmt.Printf("CA: %s\n", caFile)
			fmt.Println("\nPress Ctrl+C to stop...")

			// Wait for signal or error
			select {
			case sig := <-sigChan:
				fmt.Printf("\nReceived signal: %v\n", sig)
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(ctx); err != nil {
					return fmt.Errorf("shutdown error: %w", err)
				}
				fmt.Println("Server stopped gracefully")
				return nil

			case err := <-errChan:
				return fmt.Errorf("server error: %w", err)
			}
		},
	}

	cmd.Flags().IntVar(&port, "port", agent.DefaultPort, "Port to listen on")
	cmd.Flags().StringVar(&certFile, "cert", "", "Server certificate file (required)")
	cmd.Flags().StringVar(&keyFile, "key", "", "Server private key file (required)")
	cmd.Flags().StringVar(&caFile, "ca", "", "CA certificate file for client verification (required)")
	cmd.Flags().StringVar(&logFile, "log", "", "Log file path (optional)")

	return cmd
}

func agentConnectCmd() *cobra.Command {
	var (
		host     string
		port     int
		certFile string
		keyFile  string
		caFile   string
		endpoint string
		pretty   bool
	)

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect to a remote agent",
		Long: `Connect to a telemetry agent and retrieve information.

Available endpoints:
  sysinfo    - Processor identity, topology and host facts
  telemetry  - One live telemetry reading
  health     - Health check

Examples:
  # Get system information
  ryzenmon agent connect --host 192.168.1.100 --endpoint sysinfo \
    --cert client.pem --key client.key --ca ca.pem

  # Get one telemetry reading, pretty printed
  ryzenmon agent connect --host server.local --endpoint telemetry \
    --cert client.pem --key client.key --ca ca.pem --pretty`,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Check environment variables for defaults
			if certFile == "" {
				certFile = os.Getenv("RYZENMON_CLIENT_CERT")
			}
			if keyFile == "" {
				keyFile = os.Getenv("RYZENMON_CLIENT_KEY")
			}
			if caFile == "" {
				caFile = os.Getenv("RYZENMON_CLIENT_CA")
			}

			// Create config
			config := agent.ClientConfig{
				Host:     host,
				Port:     port,
				CertFile: certFile,
				KeyFile:  keyFile,
				CAFile:   caFile,
			}

			// Create client
			client, err := agent.NewClient(config)
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}

			// Connect and get data
			data, err := client.Get(endpoint)
			if err != nil {
				return fmt.Errorf("connection failed: %w", err)
			}

			// Output data
			if pretty && strings.HasPrefix(string(data), "{") {
				// Pretty print JSON
				var formatted interface{}
				if err := json.Unmarshal(data, &formatted); err == nil {
					prettyData, err := json.MarshalIndent(formatted, "", "  ")
					if err == nil {
						fmt.Println(string(prettyData))
						return nil
					}
				}
			}

			// Raw output
			fmt.Print(string(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "localhost", "Target host")
	cmd.Flags().IntVar(&port, "port", agent.DefaultPort, "Target port")
	cmd.Flags().StringVar(&certFile, "cert", "", "Client certificate file (required)")
	cmd.Flags().StringVar(&keyFile, "key", "", "Client private key file (required)")
	cmd.Flags().StringVar(&caFile, "ca", "", "CA certificate file for server verification (required)")
	cmd.Flags().StringVar(&endpoint, "endpoint", "sysinfo", "Endpoint to query")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty print JSON output")

	return cmd
}
