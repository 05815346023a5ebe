package commands

import (
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/dyluth/swarm/internal/board"
	"github.com/dyluth/swarm/internal/printer"
	"github.com/dyluth/swarm/pkg/blackboard"
)

var (
	boardName  string
	boardPort  int
	boardImage string
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Manage local blackboard containers",
	Long: `Manage local Redis containers that act as blackboards for recorded runs.

A board is a Docker container labelled with its instance name. Its Redis
port is published on 127.0.0.1, starting from 6379.`,
}

var boardUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Start a board",
	Args:  cobra.NoArgs,
	RunE:  runBoardUp,
}

var boardDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Stop and remove a board",
	Long:  "Stop and remove a board. Runs stored on it are lost.",
	Args:  cobra.NoArgs,
	RunE:  runBoardDown,
}

var boardListCmd = &cobra.Command{
	Use:   "list",
	Short: "List boards",
	Args:  cobra.NoArgs,
	RunE:  runBoardList,
}

func init() {
	boardUpCmd.Flags().StringVarP(&boardName, "name", "n", "default", "Board instance name")
	boardUpCmd.Flags().IntVar(&boardPort, "port", 0, "Host port for Redis (default: next free from 6379)")
	boardUpCmd.Flags().StringVar(&boardImage, "image", board.DefaultImage, "Redis image")
	boardDownCmd.Flags().StringVarP(&boardName, "name", "n", "default", "Board instance name")

	boardCmd.AddCommand(boardUpCmd, boardDownCmd, boardListCmd)
	rootCmd.AddCommand(boardCmd)
}

func runBoardUp(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if err := board.ValidateName(boardName); err != nil {
		return printer.Error("invalid board name", err.Error(), []string{"Use lowercase letters, digits and hyphens"})
	}

	cli, err := board.NewDockerClient(ctx)
	if err != nil {
		return printer.Error("Docker is not available", err.Error(), []string{"Start Docker and try again"})
	}
	defer cli.Close()

	printer.Step("Starting board '%s'...\n", boardName)
	info, err := board.Up(ctx, cli, board.UpOptions{Name: boardName, Image: boardImage, Port: boardPort})
	if err != nil {
		return printer.Error(fmt.Sprintf("failed to start board '%s'", boardName), err.Error(), []string{
			fmt.Sprintf("If it already exists, remove it first:\n  swarm board down --name %s", boardName),
		})
	}

	client, err := blackboard.NewClientFromURL(info.RedisURL, info.Name)
	if err != nil {
		return err
	}
	defer client.Close()
	if err := board.WaitReady(ctx, client.Ping, 30*time.Second); err != nil {
		return printer.Error("board did not become ready", err.Error(), []string{
			fmt.Sprintf("Check the container logs:\n  docker logs %s", board.RedisContainerName(info.Name)),
		})
	}

	printer.Success("Board '%s' is ready\n\n", info.Name)
	printer.Fields("Connection", [][2]string{
		{"Instance", info.Name},
		{"Redis", info.RedisURL},
	})
	printer.Info("\nRecord runs on it by setting in swarm.yml:\n  blackboard:\n    enabled: true\n    redis_url: %s\n    instance: %s\n", info.RedisURL, info.Name)
	return nil
}

func runBoardDown(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cli, err := board.NewDockerClient(ctx)
	if err != nil {
		return printer.Error("Docker is not available", err.Error(), []string{"Start Docker and try again"})
	}
	defer cli.Close()

	removed, err := board.Down(ctx, cli, boardName)
	if err != nil {
		return printer.Error(fmt.Sprintf("failed to remove board '%s'", boardName), err.Error(), []string{"List boards:\n  swarm board list"})
	}
	printer.Success("Removed board '%s' (%d container(s))\n", boardName, removed)
	return nil
}

func runBoardList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cli, err := board.NewDockerClient(ctx)
	if err != nil {
		return printer.Error("Docker is not available", err.Error(), []string{"Start Docker and try again"})
	}
	defer cli.Close()

	infos, err := board.List(ctx, cli)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(out, "No boards found")
		fmt.Fprintln(out, "\nStart one with:\n  swarm board up")
		return nil
	}

	table := tablewriter.NewWriter(out)
	table.Header("Name", "Status", "Redis")
	for _, info := range infos {
		url := info.RedisURL
		if url == "" {
			url = "-"
		}
		if err := table.Append(info.Name, string(info.Status), url); err != nil {
			return err
		}
	}
	return table.Render()
}
