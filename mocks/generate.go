package mocks

//go:generate mockgen -destination=./mock_doer.go -package=mocks github.com/rxtech-lab/clearstreet-go/pkg/transport Doer
//go:generate mockgen -destination=./mock_token_source.go -package=mocks github.com/rxtech-lab/clearstreet-go/pkg/auth TokenSource
//go:generate mockgen -destination=./mock_executor.go -package=mocks github.com/rxtech-lab/clearstreet-go/pkg/auth Executor
