package server

import (
	"context"

	"github.com/iamcapote/semantic-flow-sub001/internal/errors"
	"github.com/iamcapote/semantic-flow-sub001/providers"
	"github.com/iamcapote/semantic-flow-sub001/session"
	"github.com/iamcapote/semantic-flow-sub001/trpc"
	"github.com/iamcapote/semantic-flow-sub001/users"
	"github.com/iamcapote/semantic-flow-sub001/workflows"
)

type idInput struct {
	ID string `json:"id"`
}

type exportInput struct {
	ID     string `json:"id"`
	Format string `json:"format"`
}

type starResult struct {
	ID        string `json:"id"`
	StarCount int    `json:"starCount"`
}

type okResult struct {
	OK bool `json:"ok"`
}

// caller returns the session user id set by RequireTRPCSession
func caller(ctx context.Context) (string, error) {
	claims, ok := session.FromContext(ctx)
	if !ok {
		return "", trpc.NewError(trpc.CodeUnauthorized, "unauthorized")
	}
	return claims.Subject, nil
}

func requireID(id string) error {
	if id == "" {
		return errors.Wrapf(errors.ErrInvalidRequest, "id is required")
	}
	return nil
}

func (s *Server) newTRPCRouter() *trpc.Router {
	rt := trpc.NewRouter()

	// workflow.*
	rt.Query("workflow.list", trpc.Typed(func(ctx context.Context, in workflows.ListOptions) ([]*workflows.Workflow, error) {
		userID, err := caller(ctx)
		if err != nil {
			return nil, err
		}
		return s.workflows.List(ctx, userID, in)
	}))
	rt.Query("workflow.get", trpc.Typed(func(ctx context.Context, in idInput) (*workflows.Workflow, error) {
		userID, err := caller(ctx)
		if err != nil {
			return nil, err
		}
		if err := requireID(in.ID); err != nil {
			return nil, err
		}
		return s.workflows.Get(ctx, userID, in.ID)
	}))
	rt.Query("workflow.export", trpc.Typed(func(ctx context.Context, in exportInput) (string, error) {
		userID, err := caller(ctx)
		if err != nil {
			return "", err
		}
		if err := requireID(in.ID); err != nil {
			return "", err
		}
		return s.workflows.Export(ctx, userID, in.ID, in.Format)
	}))
	rt.Mutation("workflow.create", trpc.Typed(func(ctx context.Context, in workflows.Input) (*workflows.Workflow, error) {
		userID, err := caller(ctx)
		if err != nil {
			return nil, err
		}
		return s.workflows.Create(ctx, userID, in)
	}))
	rt.Mutation("workflow.update", trpc.Typed(func(ctx context.Context, in workflows.UpdateInput) (*workflows.Workflow, error) {
		userID, err := caller(ctx)
		if err != nil {
			return nil, err
		}
		if err := requireID(in.ID); err != nil {
			return nil, err
		}
		return s.workflows.Update(ctx, userID, in)
	}))
	rt.Mutation("workflow.delete", trpc.Typed(func(ctx context.Context, in idInput) (okResult, error) {
		userID, err := caller(ctx)
		if err != nil {
			return okResult{}, err
		}
		if err := requireID(in.ID); err != nil {
			return okResult{}, err
		}
		if err := s.workflows.Delete(ctx, userID, in.ID); err != nil {
			return okResult{}, err
		}
		return okResult{OK: true}, nil
	}))
	rt.Mutation("workflow.fork", trpc.Typed(func(ctx context.Context, in idInput) (*workflows.Workflow, error) {
		userID, err := caller(ctx)
		if err != nil {
			return nil, err
		}
		if err := requireID(in.ID); err != nil {
			return nil, err
		}
		return s.workflows.Fork(ctx, userID, in.ID)
	}))
	rt.Mutation("workflow.star", trpc.Typed(func(ctx context.Context, in idInput) (starResult, error) {
		userID, err := caller(ctx)
		if err != nil {
			return starResult{}, err
		}
		if err := requireID(in.ID); err != nil {
			return starResult{}, err
		}
		stars, err := s.workflows.Star(ctx, userID, in.ID)
		if err != nil {
			return starResult{}, err
		}
		return starResult{ID: in.ID, StarCount: stars}, nil
	}))

	// user.*
	rt.Query("user.me", trpc.Typed(func(ctx context.Context, _ struct{}) (*users.User, error) {
		claims, ok := session.FromContext(ctx)
		if !ok {
			return nil, trpc.NewError(trpc.CodeUnauthorized, "unauthorized")
		}
		u, err := s.users.GetByID(ctx, claims.Subject)
		if errors.Is(err, errors.ErrNotFound) {
			// The token is authoritative when no record exists
			return &users.User{Profile: claims.User}, nil
		}
		return u, err
	}))

	// provider.*
	rt.Query("provider.list", trpc.Typed(func(ctx context.Context, _ struct{}) ([]*providers.Provider, error) {
		userID, err := caller(ctx)
		if err != nil {
			return nil, err
		}
		return s.providers.List(ctx, userID)
	}))
	rt.Mutation("provider.create", trpc.Typed(func(ctx context.Context, in providers.Input) (*providers.Provider, error) {
		userID, err := caller(ctx)
		if err != nil {
			return nil, err
		}
		return s.providers.Create(ctx, userID, in)
	}))
	rt.Mutation("provider.update", trpc.Typed(func(ctx context.Context, in providers.UpdateInput) (*providers.Provider, error) {
		userID, err := caller(ctx)
		if err != nil {
			return nil, err
		}
		if err := requireID(in.ID); err != nil {
			return nil, err
		}
		return s.providers.Update(ctx, userID, in)
	}))
	rt.Mutation("provider.delete", trpc.Typed(func(ctx context.Context, in idInput) (okResult, error) {
		userID, err := caller(ctx)
		if err != nil {
			return okResult{}, err
		}
		if err := requireID(in.ID); err != nil {
			return okResult{}, err
		}
		if err := s.providers.Delete(ctx, userID, in.ID); err != nil {
			return okResult{}, err
		}
		return okResult{OK: true}, nil
	}))

	return rt
}
