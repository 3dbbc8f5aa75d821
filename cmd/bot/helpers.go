package main

import (
	"bytes"
	"fmt"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/zeakcloud/lynx/pkg/messages"
)

func respondError(a *App, i *discordgo.InteractionCreate) error {
	return respondEphemeral(a, i, messages.ErrUserErrorProcessing)
}

func respondEphemeral(a *App, i *discordgo.InteractionCreate, content string) error {
	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// transcriptFile wraps a rendered transcript as a message attachment.
func transcriptFile(channelID string, doc []byte) *discordgo.File {
	return &discordgo.File{
		Name:        fmt.Sprintf("transcript-%s.txt", channelID),
		ContentType: "text/plain",
		Reader:      bytes.NewReader(doc),
	}
}
