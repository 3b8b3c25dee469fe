package tgstore

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/slauger/suno-cli/pkg/storage"
)

// Store keeps artifacts as documents in a Telegram chat. The journal maps
// archive names to chat/message/file references.
type Store struct {
	bot    *tgbot.BotAPI
	token  string
	chat   int64
	client *http.Client
	debug  bool
	store  *storage.Store
}

func New(token string, chat int64, proxy string, debug bool, store *storage.Store) (*Store, error) {
	bot, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	if _, err := bot.GetChat(tgbot.ChatConfig{ChatID: chat}); err != nil {
		return nil, fmt.Errorf("tgstore: invalid chat id: %w", err)
	}

	client := &http.Client{
		Timeout: 60 * time.Second,
	}
	if proxy != "" {
		u, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("tgstore: invalid proxy %s: %w", proxy, err)
		}
		client.Transport = &http.Transport{
			Proxy: http.ProxyURL(u),
		}
	}
	return &Store{
		bot:    bot,
		token:  token,
		chat:   chat,
		client: client,
		debug:  debug,
		store:  store,
	}, nil
}

var backoff = []time.Duration{
	15 * time.Second,
	30 * time.Second,
	1 * time.Minute,
}

func (s *Store) Upload(ctx context.Context, path, name string) error {
	doc := tgbot.NewDocumentUpload(s.chat, path)

	maxAttempts := 3
	attempts := 0
	var msg tgbot.Message
	for {
		var err error
		msg, err = s.bot.Send(doc)
		if err == nil {
			break
		}
		attempts++
		if attempts >= maxAttempts {
			return fmt.Errorf("tgstore: couldn't send file: %w", err)
		}
		idx := attempts - 1
		if idx >= len(backoff) {
			idx = len(backoff) - 1
		}
		wait := backoff[idx]
		if s.debug {
			log.Printf("%v (retrying in %s)\n", err, wait)
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("tgstore: send file cancelled: %w", ctx.Err())
		case <-t.C:
		}
	}

	fileID := messageFileID(msg)
	if fileID == "" {
		return fmt.Errorf("tgstore: message %d doesn't contain a file", msg.MessageID)
	}
	ref := toRef(s.chat, msg.MessageID, fileID)
	if err := s.store.SetFileRef(ctx, name, ref); err != nil {
		return fmt.Errorf("tgstore: couldn't set file %s: %w", name, err)
	}
	return nil
}

func messageFileID(msg tgbot.Message) string {
	switch {
	case msg.Audio != nil && msg.Audio.FileID != "":
		return msg.Audio.FileID
	case msg.Video != nil && msg.Video.FileID != "":
		return msg.Video.FileID
	case msg.Document != nil && msg.Document.FileID != "":
		return msg.Document.FileID
	case msg.Photo != nil && len(*msg.Photo) > 0:
		return (*msg.Photo)[0].FileID
	}
	return ""
}

func (s *Store) Download(ctx context.Context, path, name string) error {
	ref, err := s.store.GetFileRef(ctx, name)
	if err != nil {
		return fmt.Errorf("tgstore: couldn't get file %s: %w", name, err)
	}
	u, err := s.link(ref)
	if err != nil {
		return err
	}

	maxAttempts := 3
	attempts := 0
	var b []byte
	for {
		b, err = s.download(ref, u)
		if err == nil {
			break
		}
		attempts++
		if attempts >= maxAttempts {
			return err
		}
		idx := attempts - 1
		if idx >= len(backoff) {
			idx = len(backoff) - 1
		}
		wait := backoff[idx]
		if s.debug {
			log.Printf("%v (retrying in %s)\n", err, wait)
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}

	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("tgstore: couldn't write %s: %w", path, err)
	}
	return nil
}

func (s *Store) link(ref string) (string, error) {
	_, _, fileID, err := fromRef(ref)
	if err != nil {
		return "", err
	}
	file, err := s.bot.GetFile(tgbot.FileConfig{FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("tgstore: couldn't get file: %w", err)
	}
	return file.Link(s.bot.Token), nil
}

func (s *Store) Delete(ctx context.Context, ref string) error {
	chat, msgID, _, err := fromRef(ref)
	if err != nil {
		return err
	}
	if _, err := s.bot.DeleteMessage(tgbot.DeleteMessageConfig{
		ChatID:    chat,
		MessageID: msgID,
	}); err != nil {
		return fmt.Errorf("tgstore: couldn't delete message: %w", err)
	}
	return nil
}

func (s *Store) download(ref, u string) ([]byte, error) {
	resp, err := s.client.Get(u)
	if err != nil {
		return nil, fmt.Errorf("tgstore: couldn't download %s: %w", ref, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tgstore: couldn't read %s: %w", ref, err)
	}
	return b, nil
}

func toRef(chat int64, msgID int, fileID string) string {
	return fmt.Sprintf("%d/%d/%s", chat, msgID, fileID)
}

func fromRef(id string) (int64, int, string, error) {
	split := strings.Split(id, "/")
	if len(split) != 3 {
		return 0, 0, "", fmt.Errorf("tgstore: invalid ref %s", id)
	}
	chat, err := strconv.ParseInt(split[0], 10, 64)
	if err != nil {
		return 0, 0, "", fmt.Errorf("tgstore: invalid ref %s: %w", id, err)
	}
	msgID, err := strconv.Atoi(split[1])
	if err != nil {
		return 0, 0, "", fmt.Errorf("tgstore: invalid ref %s: %w", id, err)
	}
	if split[2] == "" {
		return 0, 0, "", fmt.Errorf("tgstore: invalid ref %s", id)
	}
	return chat, msgID, split[2], nil
}
