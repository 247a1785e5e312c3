package biz

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/panjf2000/ants/v2"

	"github.com/kart-io/advisor-x/internal/advisor/store"
	"github.com/kart-io/advisor-x/internal/model"
	"github.com/kart-io/advisor-x/pkg/errors"
	"github.com/kart-io/advisor-x/pkg/id"
	knowledgeopts "github.com/kart-io/advisor-x/pkg/options/knowledge"
)

// ProposalInput is one assertion submitted for merging into the graph.
type ProposalInput struct {
	EntityType     string  `json:"entity_type" binding:"required"`
	EntityName     string  `json:"entity_name" binding:"required"`
	Value          string  `json:"value" binding:"required"`
	ProvenanceKind string  `json:"provenance_kind" binding:"required"`
	ProvenanceRef  string  `json:"provenance_ref" binding:"required"`
	Confidence     float64 `json:"confidence"`
}

// KnowledgeService merges proposals into the knowledge graph and carries
// entities through the suggested → needs_review → confirmed lifecycle.
// Entities never change except through this service.
//
// 同一实体 (venture, type, name) 的合并串行化, 不同实体并行处理。
type KnowledgeService struct {
	store store.Factory
	opts  *knowledgeopts.Options

	entityID   *id.Generator
	proposalID *id.Generator

	pool *ants.Pool

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKnowledgeService creates a KnowledgeService with its merge worker pool.
func NewKnowledgeService(factory store.Factory, opts *knowledgeopts.Options) (*KnowledgeService, error) {
	pool, err := ants.NewPool(opts.WorkerPoolSize)
	if err != nil {
		return nil, fmt.Errorf("创建提案工作池失败: %w", err)
	}
	return &KnowledgeService{
		store:      factory,
		opts:       opts,
		entityID:   id.NewGenerator("ent"),
		proposalID: id.NewGenerator("prop"),
		pool:       pool,
		locks:      make(map[string]*sync.Mutex),
	}, nil
}

// Close releases the merge worker pool.
func (s *KnowledgeService) Close() {
	s.pool.Release()
}

// lockFor returns the mutex serializing merges for one entity key.
func (s *KnowledgeService) lockFor(ventureID, entityType, name string) *sync.Mutex {
	key := ventureID + "|" + entityType + "|" + name
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// ProposeBatch merges a batch of proposals. The batch is rejected whole if
// the venture does not exist or any proposal is malformed; otherwise each
// proposal is merged independently and its outcome recorded on the row.
func (s *KnowledgeService) ProposeBatch(ctx context.Context, workspaceID, ventureID string, inputs []ProposalInput) ([]*model.Proposal, error) {
	if len(inputs) == 0 {
		return nil, errors.ErrInvalidParameter.WithMessage("提案批次为空")
	}
	if len(inputs) > s.opts.MaxBatchSize {
		return nil, errors.ErrInvalidParameter.WithMessagef("提案批次超过上限 %d", s.opts.MaxBatchSize)
	}
	for _, in := range inputs {
		if !model.ValidEntityType(in.EntityType) {
			return nil, errors.ErrInvalidParameter.WithMessagef("未知实体类型: %s", in.EntityType)
		}
		switch in.ProvenanceKind {
		case model.ProvenanceKindDocument, model.ProvenanceKindChat, model.ProvenanceKindManual:
		default:
			return nil, errors.ErrInvalidParameter.WithMessagef("未知来源类型: %s", in.ProvenanceKind)
		}
	}

	exists, err := s.store.Ventures().Exists(ctx, workspaceID, ventureID)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	if !exists {
		return nil, errors.ErrVentureNotFound
	}

	proposals := make([]*model.Proposal, len(inputs))
	var wg sync.WaitGroup
	for i, in := range inputs {
		p := &model.Proposal{
			ID:             s.proposalID.New(),
			WorkspaceID:    workspaceID,
			VentureID:      ventureID,
			EntityType:     in.EntityType,
			EntityName:     in.EntityName,
			Value:          in.Value,
			ProvenanceKind: in.ProvenanceKind,
			ProvenanceRef:  in.ProvenanceRef,
			Confidence:     clampConfidence(in.Confidence),
			State:          model.ProposalStatePending,
		}
		proposals[i] = p

		wg.Add(1)
		proposal := p
		if err := s.pool.Submit(func() {
			defer wg.Done()
			s.merge(ctx, proposal)
		}); err != nil {
			wg.Done()
			proposal.State = model.ProposalStateRejected
			proposal.Note = "工作池已关闭"
		}
	}
	wg.Wait()

	for _, p := range proposals {
		if err := s.store.Proposals().Create(ctx, p); err != nil {
			return nil, errors.ErrDatabase.WithCause(err)
		}
	}
	return proposals, nil
}

// merge applies one proposal against the entity it names, serialized per
// entity key. Outcomes land on the proposal row; merge never returns an
// error because a failed merge is itself an outcome.
func (s *KnowledgeService) merge(ctx context.Context, p *model.Proposal) {
	l := s.lockFor(p.VentureID, p.EntityType, p.EntityName)
	l.Lock()
	defer l.Unlock()

	entity, err := s.store.Entities().GetByKey(ctx, p.VentureID, p.EntityType, p.EntityName)
	if err != nil {
		p.State = model.ProposalStateRejected
		p.Note = "实体查询失败: " + err.Error()
		return
	}

	weighted := p.Confidence * s.opts.ProvenanceWeight(p.ProvenanceKind)

	if entity == nil {
		s.createEntity(ctx, p, weighted)
		return
	}

	p.EntityID = entity.ID

	if entity.Status == model.EntityStatusPinned {
		// 置顶实体的值不会被自动修改, 只登记证据
		if entity.Value == p.Value {
			if err := s.corroborate(ctx, p, entity, weighted); err != nil {
				p.State = model.ProposalStateRejected
				p.Note = err.Error()
			}
			return
		}
		p.State = model.ProposalStateConflicted
		p.Note = "实体已置顶, 冲突值不生效"
		return
	}

	if entity.Value == p.Value {
		if err := s.corroborate(ctx, p, entity, weighted); err != nil {
			p.State = model.ProposalStateRejected
			p.Note = err.Error()
		}
		return
	}

	// 建议阶段的实体允许非冲突字段合并: 重叠字段全部一致时取并集,
	// 按佐证处理而不是冲突
	if entity.Status == model.EntityStatusSuggested {
		if merged, ok := mergeValues(entity.Value, p.Value); ok {
			entity.Value = merged
			if err := s.corroborate(ctx, p, entity, weighted); err != nil {
				p.State = model.ProposalStateRejected
				p.Note = err.Error()
				return
			}
			if p.State == model.ProposalStateApplied {
				p.Note = "重叠字段一致, 新字段已合并"
			}
			return
		}
	}

	s.conflict(ctx, p, entity, weighted)
}

// mergeValues merges two JSON object values. It succeeds only when every
// overlapping field carries the same value; any disagreement, or either
// value not being a JSON object, is a conflict for the caller to handle.
func mergeValues(current, proposed string) (string, bool) {
	var base, incoming map[string]any
	if sonic.UnmarshalString(current, &base) != nil || sonic.UnmarshalString(proposed, &incoming) != nil {
		return "", false
	}
	for k, v := range incoming {
		if existing, ok := base[k]; ok && !reflect.DeepEqual(existing, v) {
			return "", false
		}
		base[k] = v
	}
	out, err := sonic.ConfigStd.MarshalToString(base)
	if err != nil {
		return "", false
	}
	return out, true
}

// createEntity materializes a new suggested entity from its first proposal.
func (s *KnowledgeService) createEntity(ctx context.Context, p *model.Proposal, weighted float64) {
	entity := &model.Entity{
		ID:            s.entityID.New(),
		WorkspaceID:   p.WorkspaceID,
		VentureID:     p.VentureID,
		Type:          p.EntityType,
		Name:          p.EntityName,
		Value:         p.Value,
		Status:        model.EntityStatusSuggested,
		Confidence:    weighted,
		EvidenceCount: 1,
	}
	if err := s.store.Entities().Create(ctx, entity); err != nil {
		p.State = model.ProposalStateRejected
		p.Note = "实体创建失败: " + err.Error()
		return
	}
	if _, err := s.store.Entities().AddEvidence(ctx, &model.Evidence{
		EntityID:       entity.ID,
		ProvenanceKind: p.ProvenanceKind,
		ProvenanceRef:  p.ProvenanceRef,
	}); err != nil {
		p.State = model.ProposalStateRejected
		p.Note = "证据登记失败: " + err.Error()
		return
	}
	p.EntityID = entity.ID
	p.State = model.ProposalStateApplied
}

// corroborate handles a proposal agreeing with the entity's current value:
// record evidence, blend confidence, and promote the lifecycle status when
// the thresholds are met.
func (s *KnowledgeService) corroborate(ctx context.Context, p *model.Proposal, entity *model.Entity, weighted float64) error {
	added, err := s.store.Entities().AddEvidence(ctx, &model.Evidence{
		EntityID:       entity.ID,
		ProvenanceKind: p.ProvenanceKind,
		ProvenanceRef:  p.ProvenanceRef,
	})
	if err != nil {
		return fmt.Errorf("证据登记失败: %w", err)
	}
	if !added {
		// 同一来源重复提交, 幂等处理
		p.State = model.ProposalStateDuplicate
		p.Note = "相同来源的证据已存在"
		return nil
	}

	count, err := s.store.Entities().CountEvidence(ctx, entity.ID)
	if err != nil {
		return fmt.Errorf("证据统计失败: %w", err)
	}

	entity.EvidenceCount = int(count)
	entity.Confidence = (entity.Confidence*float64(count-1) + weighted) / float64(count)

	// 置顶实体只积累证据, 状态不动
	if entity.Status != model.EntityStatusPinned {
		if entity.Status == model.EntityStatusSuggested && entity.EvidenceCount >= s.opts.ReviewEvidenceCount {
			entity.Status = model.EntityStatusNeedsReview
		}
		if entity.CompetingValue == "" &&
			entity.EvidenceCount >= s.opts.ConfirmEvidenceCount &&
			entity.Confidence >= s.opts.ConfirmConfidence {
			entity.Status = model.EntityStatusConfirmed
		}
	}

	if err := s.store.Entities().Update(ctx, entity); err != nil {
		return fmt.Errorf("实体更新失败: %w", err)
	}
	p.State = model.ProposalStateApplied
	return nil
}

// conflict handles a proposal disagreeing with the entity's current value.
// Confirmed knowledge is never overwritten: the entity drops to
// needs_review keeping its value, with the challenger recorded alongside.
// A lower-confidence suggestion, by contrast, is simply superseded.
func (s *KnowledgeService) conflict(ctx context.Context, p *model.Proposal, entity *model.Entity, weighted float64) {
	if entity.Status == model.EntityStatusSuggested && weighted > entity.Confidence {
		if err := s.store.Entities().DeleteEvidence(ctx, entity.ID); err != nil {
			p.State = model.ProposalStateRejected
			p.Note = "证据重置失败: " + err.Error()
			return
		}
		entity.Value = p.Value
		entity.Confidence = weighted
		entity.EvidenceCount = 1
		entity.CompetingValue = ""
		if err := s.store.Entities().Update(ctx, entity); err != nil {
			p.State = model.ProposalStateRejected
			p.Note = "实体更新失败: " + err.Error()
			return
		}
		if _, err := s.store.Entities().AddEvidence(ctx, &model.Evidence{
			EntityID:       entity.ID,
			ProvenanceKind: p.ProvenanceKind,
			ProvenanceRef:  p.ProvenanceRef,
		}); err != nil {
			p.State = model.ProposalStateRejected
			p.Note = "证据登记失败: " + err.Error()
			return
		}
		p.State = model.ProposalStateApplied
		p.Note = "取代了低置信度的建议值"
		return
	}

	entity.Status = model.EntityStatusNeedsReview
	entity.CompetingValue = p.Value
	if err := s.store.Entities().Update(ctx, entity); err != nil {
		p.State = model.ProposalStateRejected
		p.Note = "实体更新失败: " + err.Error()
		return
	}
	p.State = model.ProposalStateConflicted
	p.Note = "与当前值冲突, 实体转入人工评审"
}

// AcceptProposal resolves a conflicted proposal by applying its value. The
// entity becomes confirmed with its evidence reset to the accepting
// proposal's provenance.
func (s *KnowledgeService) AcceptProposal(ctx context.Context, workspaceID, proposalID string) (*model.Entity, error) {
	p, err := s.store.Proposals().Get(ctx, workspaceID, proposalID)
	if err != nil {
		return nil, errors.ErrProposalNotFound.WithCause(err)
	}
	if p.State != model.ProposalStateConflicted && p.State != model.ProposalStatePending {
		return nil, errors.ErrProposalResolved
	}

	l := s.lockFor(p.VentureID, p.EntityType, p.EntityName)
	l.Lock()
	defer l.Unlock()

	entity, err := s.store.Entities().GetByKey(ctx, p.VentureID, p.EntityType, p.EntityName)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	if entity == nil {
		return nil, errors.ErrEntityNotFound
	}

	if err := s.store.Entities().DeleteEvidence(ctx, entity.ID); err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	entity.Value = p.Value
	entity.CompetingValue = ""
	entity.Status = model.EntityStatusConfirmed
	entity.Confidence = clampConfidence(p.Confidence * s.opts.ProvenanceWeight(p.ProvenanceKind))
	entity.EvidenceCount = 1
	if err := s.store.Entities().Update(ctx, entity); err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	if _, err := s.store.Entities().AddEvidence(ctx, &model.Evidence{
		EntityID:       entity.ID,
		ProvenanceKind: p.ProvenanceKind,
		ProvenanceRef:  p.ProvenanceRef,
	}); err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}

	p.State = model.ProposalStateAccepted
	p.EntityID = entity.ID
	if err := s.store.Proposals().Update(ctx, p); err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	return entity, nil
}

// RejectProposal discards a conflicted proposal. If the challenger was the
// only thing keeping the entity in needs_review, the entity returns to
// confirmed.
func (s *KnowledgeService) RejectProposal(ctx context.Context, workspaceID, proposalID string) (*model.Entity, error) {
	p, err := s.store.Proposals().Get(ctx, workspaceID, proposalID)
	if err != nil {
		return nil, errors.ErrProposalNotFound.WithCause(err)
	}
	if p.State != model.ProposalStateConflicted && p.State != model.ProposalStatePending {
		return nil, errors.ErrProposalResolved
	}

	l := s.lockFor(p.VentureID, p.EntityType, p.EntityName)
	l.Lock()
	defer l.Unlock()

	entity, err := s.store.Entities().GetByKey(ctx, p.VentureID, p.EntityType, p.EntityName)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	if entity != nil && entity.CompetingValue == p.Value {
		entity.CompetingValue = ""
		if entity.Status == model.EntityStatusNeedsReview &&
			entity.EvidenceCount >= s.opts.ConfirmEvidenceCount &&
			entity.Confidence >= s.opts.ConfirmConfidence {
			entity.Status = model.EntityStatusConfirmed
		}
		if err := s.store.Entities().Update(ctx, entity); err != nil {
			return nil, errors.ErrDatabase.WithCause(err)
		}
	}

	p.State = model.ProposalStateRejected
	if err := s.store.Proposals().Update(ctx, p); err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	return entity, nil
}

// PinEntity freezes an entity's value against automatic changes.
func (s *KnowledgeService) PinEntity(ctx context.Context, workspaceID, entityID string) (*model.Entity, error) {
	entity, err := s.store.Entities().Get(ctx, workspaceID, entityID)
	if err != nil {
		return nil, errors.ErrEntityNotFound.WithCause(err)
	}
	entity.Status = model.EntityStatusPinned
	entity.CompetingValue = ""
	if err := s.store.Entities().Update(ctx, entity); err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	return entity, nil
}

// UnpinEntity releases a pinned entity back to confirmed.
func (s *KnowledgeService) UnpinEntity(ctx context.Context, workspaceID, entityID string) (*model.Entity, error) {
	entity, err := s.store.Entities().Get(ctx, workspaceID, entityID)
	if err != nil {
		return nil, errors.ErrEntityNotFound.WithCause(err)
	}
	if entity.Status == model.EntityStatusPinned {
		entity.Status = model.EntityStatusConfirmed
		if err := s.store.Entities().Update(ctx, entity); err != nil {
			return nil, errors.ErrDatabase.WithCause(err)
		}
	}
	return entity, nil
}

// VentureProfile groups a venture's entities by type, most trusted first
// within each group.
func (s *KnowledgeService) VentureProfile(ctx context.Context, workspaceID, ventureID string) (map[string][]*model.Entity, error) {
	exists, err := s.store.Ventures().Exists(ctx, workspaceID, ventureID)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	if !exists {
		return nil, errors.ErrVentureNotFound
	}

	entities, err := s.store.Entities().ListByVenture(ctx, workspaceID, ventureID)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	profile := make(map[string][]*model.Entity)
	for _, e := range entities {
		profile[e.Type] = append(profile[e.Type], e)
	}
	return profile, nil
}

// ListProposals lists a venture's proposals, optionally filtered by state.
func (s *KnowledgeService) ListProposals(ctx context.Context, workspaceID, ventureID, state string, offset, limit int) (int64, []*model.Proposal, error) {
	return s.store.Proposals().ListByVenture(ctx, workspaceID, ventureID, state, offset, limit)
}

func clampConfidence(c float64) float64 {
	if c <= 0 {
		return 0.5 // 未给置信度时取中性值
	}
	if c > 1 {
		return 1
	}
	return c
}
