// Package session 实现会话的签发、校验与吊销。
//
// 会话凭证是一对值：6 位数字的 sessionId，以及用服务端密钥对
// sessionId 做 HMAC-SHA256 得到的 sessionHash。客户端在每个受保护
// 请求上同时出示两者；校验时服务端重新派生摘要再查库，而不是
// 只按 sessionId 查表，这样光猜中 sessionId 是不够的。
package session

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"taskmanager/internal/model"
	"taskmanager/internal/pkg/metrics"
)

var (
	// ErrNotFound 表示出示的会话对无效、已吊销或属主已不存在。
	// 对外统一用它，不区分具体是哪一半凭证错了。
	ErrNotFound = errors.New("invalid session or user not found")
	// ErrIDSpaceExhausted 表示重试多次仍无法生成未占用的会话 ID。
	ErrIDSpaceExhausted = errors.New("session id space exhausted")
	// ErrDuplicateID 由 Store.Create 在唯一约束冲突时返回，
	// 签发方收到后换一个候选 ID 重试，绝不向客户端透出。
	ErrDuplicateID = errors.New("duplicate session id")
)

// 会话 ID 取值区间 [100000, 999999]，约 90 万个候选。
const (
	idMin     = 100000
	idSpan    = 900000
	maxIssues = 10 // 撞号重试上限，超过按基础设施故障处理
)

// Pair 是下发给客户端的会话凭证对。
type Pair struct {
	ID   string `json:"sessionId"`
	Hash string `json:"sessionHash"`
}

// Store 定义会话存储需要的操作。
type Store interface {
	// Create 插入一条会话记录，唯一约束冲突时返回 ErrDuplicateID。
	Create(ctx context.Context, sess *model.Session) error
	// FindByPair 按 (sessionId, sessionHash) 同时匹配查找一条记录，
	// 未命中返回 ErrNotFound。
	FindByPair(ctx context.Context, id, hash string) (*model.Session, error)
	// ExistsID 检查某个会话 ID 是否已被占用。
	ExistsID(ctx context.Context, id string) (bool, error)
	// DeleteByID 删除单条会话，不存在不算错误。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUser 删除某用户的全部会话，删除 0 条不算错误。
	DeleteByUser(ctx context.Context, userID uint) error
	// DeleteCreatedBefore 删除在 cutoff 之前签发的会话，返回删除条数。
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// UserFinder 定义校验会话时解析属主所需的用户查询。
type UserFinder interface {
	// FindUserByID 按 ID 查用户，未找到返回 ErrNotFound。
	FindUserByID(ctx context.Context, id uint) (*model.User, error)
}

// Manager 持有密钥与存储，提供签发 / 校验 / 吊销。
//
// secret 是进程级配置，启动时注入一次；ttl 为 0 表示会话永不过期。
type Manager struct {
	store  Store
	users  UserFinder
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewManager 创建会话管理器。
func NewManager(store Store, users UserFinder, secret string, ttl time.Duration) *Manager {
	return &Manager{
		store:  store,
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue 为用户签发一个新会话并返回凭证对。
//
// 候选 ID 先查重再插入；查重和插入之间并发撞号由存储层唯一约束
// 兜底，收到 ErrDuplicateID 换号重试。连续 maxIssues 次都撞号时
// 返回 ErrIDSpaceExhausted。
func (m *Manager) Issue(ctx context.Context, userID uint) (Pair, error) {
	for attempt := 0; attempt < maxIssues; attempt++ {
		id, err := randomID()
		if err != nil {
			return Pair{}, fmt.Errorf("generate session id: %w", err)
		}

		taken, err := m.store.ExistsID(ctx, id)
		if err != nil {
			return Pair{}, fmt.Errorf("check session id: %w", err)
		}
		if taken {
			metrics.SessionIDCollisionsTotal.Inc()
			continue
		}

		hash := m.DeriveHash(id)
		sess := &model.Session{
			SessionID:   id,
			SessionHash: hash,
			UserID:      userID,
			CreatedAt:   m.now(),
		}
		if err := m.store.Create(ctx, sess); err != nil {
			if errors.Is(err, ErrDuplicateID) {
				metrics.SessionIDCollisionsTotal.Inc()
				continue
			}
			return Pair{}, fmt.Errorf("persist session: %w", err)
		}

		metrics.SessionsIssuedTotal.Inc()
		return Pair{ID: id, Hash: hash}, nil
	}
	return Pair{}, ErrIDSpaceExhausted
}

// Authenticate 校验出示的会话对并解析属主。
//
// 任何一种失配（ID 错、摘要错、会话已吊销、属主已删号）都返回
// 同一个 ErrNotFound，避免响应成为探测哪一半错了的预言机。
func (m *Manager) Authenticate(ctx context.Context, presentedID, presentedHash string) (*model.User, error) {
	if presentedID == "" || presentedHash == "" {
		metrics.AuthRejectionsTotal.Inc()
		return nil, ErrNotFound
	}

	// 用当前密钥重新派生摘要并做恒定时间比较，再查库。
	expected := m.DeriveHash(presentedID)
	if !hmac.Equal([]byte(presentedHash), []byte(expected)) {
		metrics.AuthRejectionsTotal.Inc()
		return nil, ErrNotFound
	}

	sess, err := m.store.FindByPair(ctx, presentedID, presentedHash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.AuthRejectionsTotal.Inc()
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}

	if m.ttl > 0 && m.now().Sub(sess.CreatedAt) > m.ttl {
		// 过期会话顺手删掉，删不掉也不影响拒绝结果
		_ = m.store.DeleteByID(ctx, sess.SessionID)
		metrics.AuthRejectionsTotal.Inc()
		return nil, ErrNotFound
	}

	user, err := m.users.FindUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// 孤儿会话：属主已被删除
			metrics.AuthRejectionsTotal.Inc()
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("resolve session user: %w", err)
	}

	return user, nil
}

// RevokeOne 吊销单个会话（登出）。幂等。
func (m *Manager) RevokeOne(ctx context.Context, sessionID string) error {
	return m.store.DeleteByID(ctx, sessionID)
}

// RevokeAll 吊销某用户的全部会话（删号级联）。幂等。
func (m *Manager) RevokeAll(ctx context.Context, userID uint) error {
	return m.store.DeleteByUser(ctx, userID)
}

// DeriveHash 用服务端密钥对会话 ID 做 HMAC-SHA256，输出十六进制。
func (m *Manager) DeriveHash(sessionID string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(sessionID))
	return hex.EncodeToString(mac.Sum(nil))
}

// randomID 用密码学随机源在 [100000, 999999] 里均匀取一个 6 位数字串。
func randomID() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(idSpan))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+idMin), nil
}
