// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package channelview

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/canopy-chat/canopy/lib/ref"
)

// localEchoID derives the '~'-prefixed placeholder ID for an optimistic
// send. The ID hashes the channel, author, draft text, and a per-view
// nonce, so two sends of identical text from the same user still get
// distinct placeholders while the derivation stays deterministic for a
// given nonce — replayed action logs reproduce the same IDs.
func localEchoID(channelID ref.ChannelID, userID ref.UserID, text string, nonce uint64) ref.MessageID {
	hasher := blake3.New()
	hasher.Write([]byte(channelID.String()))
	hasher.Write([]byte{0})
	hasher.Write([]byte(userID.String()))
	hasher.Write([]byte{0})
	hasher.Write([]byte(text))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], nonce)
	hasher.Write(buf[:])

	digest := hasher.Sum(nil)
	id, err := ref.LocalMessageID(hex.EncodeToString(digest[:16]))
	if err != nil {
		// Unreachable: the hex digest is never empty.
		panic(fmt.Sprintf("channelview: deriving local echo ID: %v", err))
	}
	return id
}
