package session

import (
	"github.com/gammazero/deque"

	"github.com/sweetpotato0/ragdeck/api"
	"github.com/sweetpotato0/ragdeck/message"
	"github.com/sweetpotato0/ragdeck/tokenizer"
)

// contextWindow picks the newest messages that fit in turns user/assistant
// pairs and budget tokens, oldest first. A window never starts with an
// assistant reply whose question was cut off. trimmed counts the
// messages left out.
func contextWindow(msgs []*message.Message, turns, budget int, tok tokenizer.Tokenizer) (window []api.Message, trimmed int) {
	all := message.ToAPI(msgs)
	limit := turns * 2

	q := deque.New[api.Message]()
	used := 0
	for i := len(all) - 1; i >= 0 && q.Len() < limit; i-- {
		n := tok.CountTokens(all[i].Content)
		if budget > 0 && used+n > budget {
			break
		}
		used += n
		q.PushFront(all[i])
	}
	for q.Len() > 0 && q.Front().Role != api.RoleUser {
		q.PopFront()
	}

	window = make([]api.Message, 0, q.Len())
	for q.Len() > 0 {
		window = append(window, q.PopFront())
	}
	return window, len(all) - len(window)
}
