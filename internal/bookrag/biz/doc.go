// Package biz 实现 bookrag 的业务逻辑：集合管理、文档摄取、检索问答，
// 以及复用生成步骤的翻译与改写。
package biz
