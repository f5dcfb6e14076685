// Package store 提供 core.Store 的基础设施实现。
//
// 注意：此包只包含实现，接口定义在 core 包。
//
//	var s core.Store = store.NewMemoryStore()
//	s, err := store.NewRedisStore(ctx, store.RedisOptions{Addr: "localhost:6379", KeyPrefix: "simitem:"})
//
// 典型用途：model.Save / model.Load 保存与加载模型快照；filter.DenyListFilter 读取全局黑名单。
package store
