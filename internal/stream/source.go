package stream

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mr-tron/base58"

	"solana-copyarb/internal/domain"
	"solana-copyarb/internal/solana"
)

// Source delivers transaction records ready for classification.
type Source interface {
	// Subscribe starts delivery. The channel closes when the source
	// shuts down or every underlying subscription ends.
	Subscribe(ctx context.Context) (<-chan domain.TransactionRecord, error)

	// Close tears the source down.
	Close() error
}

// fetchAttempts bounds the per-signature hydration retries. At processed
// commitment getTransaction can lag the logs notification by a moment.
const (
	fetchAttempts   = 3
	fetchRetryDelay = 200 * time.Millisecond
)

// WSSource adapts the WebSocket logs subscription into a Source. A logs
// notification carries only the signature and log lines, so each one is
// hydrated into a full record through the RPC client. One subscription
// is opened per watched address; the RPC mentions filter takes a single
// address.
type WSSource struct {
	client    WSClient
	rpc       solana.RPCClient
	addresses []string
	logger    *log.Logger

	out  chan domain.TransactionRecord
	wg   sync.WaitGroup
	once sync.Once
}

// NewWSSource watches the given addresses. Subscribe may be called once.
func NewWSSource(client WSClient, rpc solana.RPCClient, addresses []string, logger *log.Logger) *WSSource {
	if logger == nil {
		logger = log.Default()
	}
	return &WSSource{
		client:    client,
		rpc:       rpc,
		addresses: addresses,
		logger:    logger,
		out:       make(chan domain.TransactionRecord, 1024),
	}
}

// Subscribe opens one logs subscription per address and merges them.
func (s *WSSource) Subscribe(ctx context.Context) (<-chan domain.TransactionRecord, error) {
	if len(s.addresses) == 0 {
		return nil, fmt.Errorf("no addresses to watch")
	}

	var chans []<-chan LogNotification
	for _, addr := range s.addresses {
		ch, err := s.client.SubscribeLogs(ctx, LogsFilter{Mentions: []string{addr}})
		if err != nil {
			return nil, fmt.Errorf("subscribe logs for %s: %w", addr, err)
		}
		s.logger.Printf("subscribed to logs mentioning %s", addr)
		chans = append(chans, ch)
	}

	for _, ch := range chans {
		s.wg.Add(1)
		go s.pump(ctx, ch)
	}
	go func() {
		s.wg.Wait()
		s.once.Do(func() { close(s.out) })
	}()

	return s.out, nil
}

// Close closes the underlying WebSocket client, which in turn closes the
// notification channels and drains the pumps.
func (s *WSSource) Close() error {
	return s.client.Close()
}

// LastMessageAt passes through the client's staleness clock when it has
// one.
func (s *WSSource) LastMessageAt() time.Time {
	if c, ok := s.client.(interface{ LastMessageAt() time.Time }); ok {
		return c.LastMessageAt()
	}
	return time.Time{}
}

// Reconnects passes through the client's reconnect counter when it has
// one.
func (s *WSSource) Reconnects() uint64 {
	if c, ok := s.client.(interface{ Reconnects() uint64 }); ok {
		return c.Reconnects()
	}
	return 0
}

// pump hydrates one subscription's notifications into records.
func (s *WSSource) pump(ctx context.Context, ch <-chan LogNotification) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case notif, ok := <-ch:
			if !ok {
				return
			}
			if notif.Err != nil {
				continue // failed transaction, nothing to mirror
			}
			rec, ok := s.hydrate(ctx, notif)
			if !ok {
				continue
			}
			select {
			case s.out <- rec:
			case <-ctx.Done():
				return
			}
		}
	}
}

// hydrate fetches the full transaction behind a notification, retrying
// briefly when the node has not indexed it yet.
func (s *WSSource) hydrate(ctx context.Context, notif LogNotification) (domain.TransactionRecord, bool) {
	var lastErr error
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return domain.TransactionRecord{}, false
			case <-time.After(fetchRetryDelay):
			}
		}
		tx, err := s.rpc.GetTransaction(ctx, notif.Signature)
		if err != nil {
			lastErr = err
			continue
		}
		if tx == nil {
			lastErr = fmt.Errorf("not indexed yet")
			continue
		}
		return recordFromTransaction(tx), true
	}
	s.logger.Printf("drop %s: fetch failed after %d attempts: %v", notif.Signature, fetchAttempts, lastErr)
	return domain.TransactionRecord{}, false
}

// recordFromTransaction maps the RPC transaction shape onto the stream
// record. Instruction data arrives base58 encoded; undecodable data is
// dropped rather than failing the whole record.
func recordFromTransaction(tx *solana.Transaction) domain.TransactionRecord {
	rec := domain.TransactionRecord{
		Signature: tx.Signature,
		Slot:      tx.Slot,
	}
	if tx.Message != nil {
		rec.RecentBlockhash = tx.Message.RecentBlockhash
		rec.AccountKeys = tx.Message.AccountKeys
		for _, ix := range tx.Message.Instructions {
			data, err := base58.Decode(ix.Data)
			if err != nil {
				data = nil
			}
			rec.Instructions = append(rec.Instructions, domain.CompiledInstruction{
				ProgramIDIndex: ix.ProgramIDIndex,
				Accounts:       ix.Accounts,
				Data:           data,
			})
		}
	}
	if tx.Meta != nil {
		rec.LogMessages = tx.Meta.LogMessages
		for _, b := range tx.Meta.PostTokenBalances {
			rec.PostTokenBalances = append(rec.PostTokenBalances, domain.TokenBalance{
				AccountIndex: b.AccountIndex,
				Mint:         b.Mint,
				Owner:        b.Owner,
				Amount:       b.UIAmount,
				Decimals:     b.Decimals,
			})
		}
	}
	return rec
}
