// Package als 实现隐式反馈的交替最小二乘矩阵分解（Implicit ALS）。
//
// 参考：Hu, Koren, Volinsky. "Collaborative Filtering for Implicit Feedback Datasets", 2008.
//
// 目标函数：
//
//	min Σ_{u,i} c_ui (p_ui - x_uᵀ y_i)² + λ (Σ ||x_u||² + Σ ||y_i||²)
//
// 其中 p_ui = 1 当且仅当 (u, i) 有交互，c_ui = 1 + α·r_ui 为置信度，r_ui 为浏览次数。
// 每轮迭代先固定 Y 求解全部 x_u，再固定 X 求解全部 y_i；
// 每一行都是一个 rank 维的正定线性方程组，用 Cholesky 分解求解。
//
// 该包满足 model.Factorizer 约定：只为至少出现在一个三元组中的物品返回向量，
// 向量长度恒为 rank。
package als

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/simitem/core"
)

// Config 是 ALS 的超参数。
type Config struct {
	// Lambda 是 L2 正则系数，<= 0 时使用 0.01
	Lambda float64 `yaml:"lambda" json:"lambda"`

	// Alpha 是置信度缩放系数 c = 1 + alpha * count，<= 0 时使用 1.0
	Alpha float64 `yaml:"alpha" json:"alpha"`

	// Seed 是隐向量随机初始化的种子；相同输入 + 相同种子得到相同结果
	Seed uint64 `yaml:"seed" json:"seed"`

	// Workers 是按行并行求解的协程数，<= 0 时使用 4
	Workers int `yaml:"workers" json:"workers"`
}

// DefaultConfig 返回默认超参数。
func DefaultConfig() Config {
	return Config{
		Lambda:  0.01,
		Alpha:   1.0,
		Seed:    3,
		Workers: 4,
	}
}

// Solver 是隐式反馈 ALS 求解器，无状态，可并发复用。
type Solver struct {
	cfg Config
}

// New 创建求解器，非法配置项回落到默认值。
func New(cfg Config) *Solver {
	def := DefaultConfig()
	if cfg.Lambda <= 0 {
		cfg.Lambda = def.Lambda
	}
	if cfg.Alpha <= 0 {
		cfg.Alpha = def.Alpha
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	return &Solver{cfg: cfg}
}

// Config 返回生效的配置。
func (s *Solver) Config() Config {
	return s.cfg
}

type entry struct {
	row  int     // 另一侧矩阵中的行号
	conf float64 // c_ui
}

// Factorize 对偏好三元组做隐式 ALS 分解，返回 物品下标 -> 隐向量。
func (s *Solver) Factorize(ctx context.Context, ratings []core.Rating, rank, iterations int) (map[int][]float64, error) {
	if len(ratings) == 0 {
		return nil, core.NewDomainError(core.ModuleTrain, core.ErrorCodeInvalidInput, "als: no ratings")
	}
	if rank <= 0 || iterations <= 0 {
		return nil, core.NewDomainError(core.ModuleTrain, core.ErrorCodeInvalidInput,
			fmt.Sprintf("als: rank and iterations must be positive, got rank=%d iterations=%d", rank, iterations))
	}

	// 三元组里的下标是全局稠密下标，但未必连续出现；压缩为求解器内部的行号
	userRow := make(map[int]int)
	itemRow := make(map[int]int)
	var itemOf []int
	for _, r := range ratings {
		if _, ok := userRow[r.User]; !ok {
			userRow[r.User] = len(userRow)
		}
		if _, ok := itemRow[r.Item]; !ok {
			itemRow[r.Item] = len(itemOf)
			itemOf = append(itemOf, r.Item)
		}
	}

	userItems := make([][]entry, len(userRow))
	itemUsers := make([][]entry, len(itemRow))
	for _, r := range ratings {
		u, i := userRow[r.User], itemRow[r.Item]
		conf := 1 + s.cfg.Alpha*r.Count
		userItems[u] = append(userItems[u], entry{row: i, conf: conf})
		itemUsers[i] = append(itemUsers[i], entry{row: u, conf: conf})
	}

	rng := rand.New(rand.NewPCG(s.cfg.Seed, s.cfg.Seed^0x9e3779b97f4a7c15))
	x := randomFactors(rng, len(userItems), rank)
	y := randomFactors(rng, len(itemUsers), rank)

	for iter := 0; iter < iterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.solveSide(ctx, x, y, userItems, rank); err != nil {
			return nil, err
		}
		if err := s.solveSide(ctx, y, x, itemUsers, rank); err != nil {
			return nil, err
		}
	}

	out := make(map[int][]float64, len(itemOf))
	for row, item := range itemOf {
		out[item] = mat.Row(nil, row, y)
	}
	return out, nil
}

// randomFactors 用标准正态随机数初始化隐向量矩阵，并按 1/rank 缩放。
func randomFactors(rng *rand.Rand, rows, rank int) *mat.Dense {
	data := make([]float64, rows*rank)
	scale := 1 / float64(rank)
	for i := range data {
		data[i] = rng.NormFloat64() * scale
	}
	return mat.NewDense(rows, rank, data)
}

// solveSide 固定 fixed，逐行求解 target：
//
//	(FᵀF + Fᵀ(Cᵘ - I)F + λI) t_u = FᵀCᵘp(u)
func (s *Solver) solveSide(ctx context.Context, target, fixed *mat.Dense, rows [][]entry, rank int) error {
	var gram mat.SymDense
	gram.SymOuterK(1, fixed.T())

	n := len(rows)
	chunk := (n + s.cfg.Workers - 1) / s.cfg.Workers

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.cfg.Workers)
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		eg.Go(func() error {
			a := mat.NewSymDense(rank, nil)
			b := mat.NewVecDense(rank, nil)
			sol := mat.NewVecDense(rank, nil)
			var chol mat.Cholesky

			for r := start; r < end; r++ {
				if err := egCtx.Err(); err != nil {
					return err
				}
				a.CopySym(&gram)
				b.Zero()
				for _, e := range rows[r] {
					f := fixed.RowView(e.row)
					a.SymRankOne(a, e.conf-1, f)
					b.AddScaledVec(b, e.conf, f)
				}
				for d := 0; d < rank; d++ {
					a.SetSym(d, d, a.At(d, d)+s.cfg.Lambda)
				}

				if ok := chol.Factorize(a); !ok {
					return core.NewDomainError(core.ModuleTrain, core.ErrorCodeInternalError,
						fmt.Sprintf("als: normal equations for row %d are not positive definite", r))
				}
				// 病态矩阵只返回 mat.Condition 告警，解仍然可用
				if err := chol.SolveVecTo(sol, b); err != nil {
					var cond mat.Condition
					if !errors.As(err, &cond) {
						return fmt.Errorf("als: solve row %d: %w", r, err)
					}
				}
				target.SetRow(r, sol.RawVector().Data)
			}
			return nil
		})
	}
	return eg.Wait()
}
