package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/goldmafia/clubhouse/internal/auth"
	"github.com/goldmafia/clubhouse/internal/pinning"
)

// fileFlags are shared by every command that reads a local file
type fileFlags struct {
	name        string
	contentType string
}

func (f *fileFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "file name sent to the gateway (default: base name of path)")
	cmd.Flags().StringVar(&f.contentType, "type", "", "MIME type (default: detected from content)")
}

func (f *fileFlags) load(path string) (pinning.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pinning.File{}, fmt.Errorf("read %s: %w", path, err)
	}
	name := f.name
	if name == "" {
		name = filepath.Base(path)
	}
	contentType := f.contentType
	if contentType == "" {
		contentType = detectContentType(data)
	}
	return pinning.File{Name: name, ContentType: contentType, Data: data}, nil
}

// detectContentType sniffs the payload and drops MIME parameters
func detectContentType(data []byte) string {
	mt := mimetype.Detect(data).String()
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return mt
}

// parseTags turns repeated key=value flags into a tag map
func parseTags(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	tags := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("tag %q: expected key=value", p)
		}
		tags[k] = v
	}
	return tags, nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func newFileCmd(a func() *app) *cobra.Command {
	var (
		ff      fileFlags
		pinName string
		tags    []string
	)
	cmd := &cobra.Command{
		Use:   "file <path>",
		Short: "Pin an arbitrary file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kv, err := parseTags(tags)
			if err != nil {
				return err
			}
			file, err := ff.load(args[0])
			if err != nil {
				return err
			}
			var meta *pinning.Metadata
			if pinName != "" || kv != nil {
				meta = &pinning.Metadata{Name: pinName, KeyValues: kv}
			}
			res, err := a().client.UploadFile(cmd.Context(), file, meta)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	ff.register(cmd)
	cmd.Flags().StringVar(&pinName, "pin-name", "", "pin name shown in the Pinata dashboard")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "metadata tag as key=value (repeatable)")
	return cmd
}

func newJSONCmd(a func() *app) *cobra.Command {
	var (
		pinName string
		tags    []string
	)
	cmd := &cobra.Command{
		Use:   "json <path>",
		Short: "Pin a JSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kv, err := parseTags(tags)
			if err != nil {
				return err
			}
			var doc any
			if err := readJSONFile(args[0], &doc); err != nil {
				return err
			}
			var meta *pinning.Metadata
			if pinName != "" || kv != nil {
				meta = &pinning.Metadata{Name: pinName, KeyValues: kv}
			}
			cid, err := a().client.UploadJSON(cmd.Context(), doc, meta)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{
				"cid": cid,
				"url": a().client.GatewayURL(cid),
			})
		},
	}
	cmd.Flags().StringVar(&pinName, "pin-name", "", "pin name shown in the Pinata dashboard")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "metadata tag as key=value (repeatable)")
	return cmd
}

func newAvatarCmd(a func() *app) *cobra.Command {
	var (
		ff   fileFlags
		user string
	)
	cmd := &cobra.Command{
		Use:   "avatar <path>",
		Short: "Pin a profile image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := ff.load(args[0])
			if err != nil {
				return err
			}
			res, err := a().client.UploadAvatar(cmd.Context(), user, file)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	ff.register(cmd)
	cmd.Flags().StringVar(&user, "user", "", "member ID the avatar belongs to")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newDealDocCmd(a func() *app) *cobra.Command {
	var (
		ff       fileFlags
		deal, by string
	)
	cmd := &cobra.Command{
		Use:   "deal-doc <path>",
		Short: "Pin a document attached to a deal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := ff.load(args[0])
			if err != nil {
				return err
			}
			res, err := a().client.UploadDealDocument(cmd.Context(), deal, by, file)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	ff.register(cmd)
	cmd.Flags().StringVar(&deal, "deal", "", "deal ID")
	cmd.Flags().StringVar(&by, "by", "", "uploader member ID")
	_ = cmd.MarkFlagRequired("deal")
	_ = cmd.MarkFlagRequired("by")
	return cmd
}

func newChatCmd(a func() *app) *cobra.Command {
	var (
		ff          fileFlags
		channel, by string
	)
	cmd := &cobra.Command{
		Use:   "chat <path>",
		Short: "Pin a chat attachment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := ff.load(args[0])
			if err != nil {
				return err
			}
			res, err := a().client.UploadChatAttachment(cmd.Context(), channel, by, file)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	ff.register(cmd)
	cmd.Flags().StringVar(&channel, "channel", "", "channel ID")
	cmd.Flags().StringVar(&by, "by", "", "uploader member ID")
	_ = cmd.MarkFlagRequired("channel")
	_ = cmd.MarkFlagRequired("by")
	return cmd
}

func newNFTCmd(a func() *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "nft <path>",
		Short: "Pin NFT metadata from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var meta pinning.NFTMetadata
			if err := readJSONFile(args[0], &meta); err != nil {
				return err
			}
			if dryRun {
				if err := a().client.ValidateNFTMetadata(meta); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "metadata is valid")
				return nil
			}
			cid, err := a().client.UploadNFTMetadata(cmd.Context(), meta)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{
				"cid":       cid,
				"token_uri": "ipfs://" + cid,
				"url":       a().client.GatewayURL(cid),
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate only, do not pin")
	return cmd
}

func newURLCmd(a func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "url <cid>",
		Short: "Print the gateway URL of a CID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), a().client.GatewayURL(args[0]))
			return nil
		},
	}
}

func newTokenCmd(a func() *app) *cobra.Command {
	var (
		user, username string
		ttl            time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a().cfg
			if !cfg.IsDevelopment() {
				return errors.New("token minting is only available with APP_ENV=development")
			}
			if cfg.JWTSigningKey == "" {
				return errors.New("JWT_SIGNING_KEY is not set")
			}
			id, err := uuid.Parse(user)
			if err != nil {
				return fmt.Errorf("--user: %w", err)
			}
			tokens, err := auth.NewTokenService(cfg.JWTSigningKey)
			if err != nil {
				return err
			}
			token, expiresAt, err := tokens.GenerateAccessTokenTTL(id, username, ttl)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"access_token": token,
				"expires_at":   expiresAt,
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "member UUID")
	cmd.Flags().StringVar(&username, "username", "", "member display name")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
