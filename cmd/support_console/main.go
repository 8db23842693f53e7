package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"support-desk/internal/adminclient"
	"support-desk/internal/config"
	"support-desk/internal/domain"
	"support-desk/internal/logging"
)

type messageAPI interface {
	ListMessages(ctx context.Context) ([]domain.Message, error)
	Reply(ctx context.Context, id int64, reply string) error
}

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConsoleConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(cfg.LogLevel, "")
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	api := adminclient.NewClient(cfg.APIBaseURL, cfg.AdminKey, logger)
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := api.Health(healthCtx); err != nil {
		logger.Warn("api not reachable", zap.String("base_url", cfg.APIBaseURL), zap.Error(err))
	}
	cancel()

	if err := runMenu(ctx, reader, os.Stdout, api); err != nil {
		log.Fatal(err)
	}
}

func runMenu(ctx context.Context, reader *bufio.Reader, out io.Writer, api messageAPI) error {
	for {
		fmt.Fprintln(out, "\n===== Consola de soporte =====")
		fmt.Fprintln(out, "[1] Ver pendientes")
		fmt.Fprintln(out, "[2] Ver todos")
		fmt.Fprintln(out, "[3] Responder mensaje")
		fmt.Fprintln(out, "[4] Salir")
		fmt.Fprint(out, "Selecciona una opcion: ")

		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read input: %w", err)
		}
		choice := strings.TrimSpace(line)

		switch choice {
		case "1", "2":
			if err := listFlow(ctx, out, api, choice == "1"); err != nil {
				fmt.Fprintf(out, "Error listando mensajes: %v\n", err)
			}
		case "3":
			if err := replyFlow(ctx, reader, out, api); err != nil {
				fmt.Fprintf(out, "Error respondiendo: %v\n", err)
			} else {
				fmt.Fprintln(out, "Respuesta registrada.")
			}
		case "4":
			return nil
		default:
			if errors.Is(err, io.EOF) {
				return nil
			}
			fmt.Fprintln(out, "Opcion invalida.")
		}
	}
}

func listFlow(ctx context.Context, out io.Writer, api messageAPI, pendingOnly bool) error {
	messages, err := api.ListMessages(ctx)
	if err != nil {
		return err
	}
	if pendingOnly {
		messages = adminclient.Pending(messages)
	}
	if len(messages) == 0 {
		fmt.Fprintln(out, "No hay mensajes.")
		return nil
	}
	for _, m := range messages {
		fmt.Fprintf(out, "[%d] %s: %s\n", m.ID, m.Username, m.UserMessage)
		if m.Replied() {
			fmt.Fprintf(out, "      respuesta: %s\n", *m.AdminReply)
		}
	}
	return nil
}

func replyFlow(ctx context.Context, reader *bufio.Reader, out io.Writer, api messageAPI) error {
	fmt.Fprint(out, "ID del mensaje: ")
	idLine, _ := reader.ReadString('\n')
	id, err := strconv.ParseInt(strings.TrimSpace(idLine), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid message id: %w", err)
	}

	fmt.Fprint(out, "Respuesta: ")
	text, _ := reader.ReadString('\n')
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("empty reply")
	}
	return api.Reply(ctx, id, text)
}
