// Package mocks provides shared test doubles for the interfaces that sit on
// package boundaries: the token service and the model generator.
//
// Each mock has function fields for per-test behavior and default values
// used when a function field is nil:
//
//	jwt := &mocks.MockJWTService{
//	    ValidateTokenFn: func(ctx context.Context, token string) (*auth.Claims, error) {
//	        return &auth.Claims{Subject: "learner-1"}, nil
//	    },
//	}
package mocks
