package tonconnect

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oasisprotocol/curve25519-voi/primitives/ed25519"

	"github.com/tonkit/jetton-deployer/address"
	"github.com/tonkit/jetton-deployer/tlb"
	"github.com/tonkit/jetton-deployer/tvm/cell"
)

const tonProofPrefix = "ton-proof-item-v2/"

const maxDomainLen = 2048

var ErrInvalidProof = errors.New("invalid ton proof")

type Domain struct {
	LengthBytes uint32 `json:"lengthBytes"`
	Value       string `json:"value"`
}

// Proof is the ton_proof item returned by the wallet on connect.
type Proof struct {
	Timestamp int64  `json:"timestamp"`
	Domain    Domain `json:"domain"`
	Signature []byte `json:"signature"`
	Payload   string `json:"payload"`
}

// PublicKeyProvider resolves the key of a deployed wallet through its get_public_key method,
// toncenter.Client implements it.
type PublicKeyProvider interface {
	GetPublicKey(ctx context.Context, addr *address.Address) ([]byte, error)
}

// ProofVerifier checks that a connected account really owns its address.
type ProofVerifier struct {
	domain   string
	ttlRange time.Duration
	keys     PublicKeyProvider
}

// NewProofVerifier creates verifier for proofs issued to domain. The wallet key is taken
// from the state init shared by the wallet, keys is asked when it is absent or unknown,
// it may be nil, then only wallets which share their state init can be verified.
func NewProofVerifier(domain string, ttlRange time.Duration, keys PublicKeyProvider) *ProofVerifier {
	return &ProofVerifier{
		domain:   domain,
		ttlRange: ttlRange,
		keys:     keys,
	}
}

// VerifyConnection checks the proof of the connection against its account.
func (v *ProofVerifier) VerifyConnection(ctx context.Context, conn *Connection) error {
	if conn == nil {
		return ErrNotConnected
	}

	if conn.Proof == nil {
		return fmt.Errorf("%w: connection has no proof", ErrInvalidProof)
	}

	return v.VerifyProof(ctx, conn.Account, *conn.Proof)
}

// VerifyConnectionWithPayload also checks that the proof payload was issued with the secret.
func (v *ProofVerifier) VerifyConnectionWithPayload(ctx context.Context, conn *Connection, secret string) error {
	if conn != nil && conn.Proof != nil {
		if err := CheckPayload(conn.Proof.Payload, secret); err != nil {
			return fmt.Errorf("%w: payload check failed: %v", ErrInvalidProof, err)
		}
	}
	return v.VerifyConnection(ctx, conn)
}

// VerifyProof checks the proof signature with the key which controls the account address.
// The key claimed by the wallet in acc.PublicKey is only compared with it, never trusted.
func (v *ProofVerifier) VerifyProof(ctx context.Context, acc Account, proof Proof) error {
	if acc.Address == nil || acc.Address.IsAddrNone() {
		return fmt.Errorf("%w: account has no address", ErrInvalidProof)
	}

	if !strings.EqualFold(proof.Domain.Value, v.domain) {
		return fmt.Errorf("%w: invalid domain", ErrInvalidProof)
	}

	if skew := timeNow().Sub(time.Unix(proof.Timestamp, 0)); skew > v.ttlRange || skew < -v.ttlRange {
		return fmt.Errorf("%w: timestamp out of allowed range", ErrInvalidProof)
	}

	if len(proof.Signature) != ed25519.SignatureSize {
		return fmt.Errorf("%w: signature length != %d", ErrInvalidProof, ed25519.SignatureSize)
	}

	hash, err := SignedHash(acc.Address, proof)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}

	pubKey, err := v.getPubKey(ctx, acc.Address, acc.WalletStateInit)
	if err != nil {
		return fmt.Errorf("%w: failed to get public key: %v", ErrInvalidProof, err)
	}

	if len(acc.PublicKey) > 0 && !bytes.Equal(acc.PublicKey, pubKey) {
		return fmt.Errorf("%w: public key does not belong to the wallet", ErrInvalidProof)
	}

	if !ed25519.Verify(pubKey, hash, proof.Signature) {
		return fmt.Errorf("%w: signature verification failed", ErrInvalidProof)
	}

	return nil
}

func (v *ProofVerifier) getPubKey(ctx context.Context, addr *address.Address, stateInit []byte) (ed25519.PublicKey, error) {
	// offline first, the state init is bound to the address by its hash
	key, err := publicKeyFromStateInit(addr, stateInit)
	if err == nil {
		return key, nil
	}

	if v.keys == nil {
		return nil, err
	}

	key, err = v.keys.GetPublicKey(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to get public key of deployed wallet: %w", err)
	}

	if len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key length != %d", ed25519.PublicKeySize)
	}
	return key, nil
}

// SignedHash returns the hash the wallet signs:
// sha256(0xffff ++ utf8("ton-connect") ++ sha256(message)).
func SignedHash(addr *address.Address, proof Proof) ([]byte, error) {
	msg, err := buildMessage(addr, proof)
	if err != nil {
		return nil, err
	}

	msgHash := sha256.Sum256(msg)

	var full bytes.Buffer
	full.Write([]byte{0xff, 0xff})
	full.WriteString("ton-connect")
	full.Write(msgHash[:])
	fullHash := sha256.Sum256(full.Bytes())

	return fullHash[:], nil
}

// utf8("ton-proof-item-v2/") ++ workchain(BE) ++ hash ++ domainLen(LE) ++ domain ++ timestamp(LE) ++ payload
func buildMessage(addr *address.Address, proof Proof) ([]byte, error) {
	if proof.Domain.LengthBytes > maxDomainLen || len(proof.Domain.Value) > maxDomainLen {
		return nil, errors.New("domain length too big")
	}

	if int(proof.Domain.LengthBytes) != len(proof.Domain.Value) {
		return nil, errors.New("domain length does not match its value")
	}

	var msg bytes.Buffer
	msg.WriteString(tonProofPrefix)

	if err := binary.Write(&msg, binary.BigEndian, addr.Workchain()); err != nil {
		return nil, err
	}
	msg.Write(addr.Data())

	if err := binary.Write(&msg, binary.LittleEndian, proof.Domain.LengthBytes); err != nil {
		return nil, err
	}
	msg.WriteString(proof.Domain.Value)

	if err := binary.Write(&msg, binary.LittleEndian, proof.Timestamp); err != nil {
		return nil, err
	}

	msg.WriteString(proof.Payload)
	return msg.Bytes(), nil
}

func publicKeyFromStateInit(addr *address.Address, stateInit []byte) (ed25519.PublicKey, error) {
	if len(stateInit) == 0 {
		return nil, errors.New("wallet state init is not shared")
	}

	siCell, err := cell.FromBOC(stateInit)
	if err != nil {
		return nil, fmt.Errorf("failed to parse state init boc: %w", err)
	}

	if !bytes.Equal(siCell.Hash(), addr.Data()) {
		return nil, errors.New("state init hash does not match address")
	}

	var si tlb.StateInit
	if err = tlb.LoadFromCell(&si, siCell.BeginParse()); err != nil {
		return nil, fmt.Errorf("failed to parse state init: %w", err)
	}

	if si.Code == nil || si.Data == nil {
		return nil, errors.New("state init has no code or data")
	}

	ver, ok := walletVersionByCodeHash[hex.EncodeToString(si.Code.Hash())]
	if !ok {
		return nil, errors.New("state init has unknown wallet code")
	}

	key, err := parsePubKeyFromData(ver, si.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key from data: %w", err)
	}
	return key, nil
}

// GeneratePayload creates a signed nonce to put into the ton_proof request,
// it expires after ttl.
func GeneratePayload(secret string, ttl time.Duration) (string, error) {
	payload := make([]byte, 16, 48)
	if _, err := rand.Read(payload[:8]); err != nil {
		return "", fmt.Errorf("could not generate nonce: %w", err)
	}
	binary.BigEndian.PutUint64(payload[8:16], uint64(timeNow().Add(ttl).Unix()))

	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	payload = h.Sum(payload)
	return hex.EncodeToString(payload[:32]), nil
}

// CheckPayload verifies a payload made by GeneratePayload with the same secret.
func CheckPayload(payload, secret string) error {
	b, err := hex.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	if len(b) != 32 {
		return errors.New("invalid payload length")
	}

	h := hmac.New(sha256.New, []byte(secret))
	h.Write(b[:16])
	sign := h.Sum(nil)
	if subtle.ConstantTimeCompare(b[16:], sign[:16]) != 1 {
		return errors.New("invalid payload signature")
	}

	if timeNow().After(time.Unix(int64(binary.BigEndian.Uint64(b[8:16])), 0)) {
		return errors.New("payload expired")
	}
	return nil
}
